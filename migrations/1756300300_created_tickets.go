package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "tier_id", Required: true},
			&core.TextField{Name: "owner_id", Required: true},
			&core.TextField{Name: "qr_token", Required: true},
			&core.SelectField{Name: "status", Values: []string{"active", "transferred", "redeemed", "cancelled", "refunded"}, MaxSelect: 1, Required: true},
			&core.DateField{Name: "purchased_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// the token is the door-scan lookup key and must never collide.
		collection.AddIndex("idx_tickets_qr_token", true, "qr_token", "")
		collection.AddIndex("idx_tickets_owner", false, "owner_id", "")
		collection.AddIndex("idx_tickets_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
