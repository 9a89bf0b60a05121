package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("pos_transactions")

		collection.Fields.Add(
			&core.SelectField{Name: "provider", Values: []string{"toast", "square"}, MaxSelect: 1, Required: true},
			&core.TextField{Name: "venue_id", Required: true},
			&core.TextField{Name: "provider_txn_id", Required: true},
			&core.TextField{Name: "card_token", Required: true},
			&core.TextField{Name: "user_id"},
			// amount in minor currency units
			&core.NumberField{Name: "amount", OnlyInt: true, Required: true},
			&core.TextField{Name: "currency"},
			&core.DateField{Name: "occurred_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		// the dedup key: one stored row per provider transaction, ever.
		collection.AddIndex("idx_pos_txns_dedup", true, "provider, venue_id, provider_txn_id", "")
		collection.AddIndex("idx_pos_txns_user_venue", false, "user_id, venue_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pos_transactions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
