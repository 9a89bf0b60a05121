package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("ticket_tiers")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "name", Required: true},
			// price in minor currency units
			&core.NumberField{Name: "price", OnlyInt: true},
			&core.NumberField{Name: "quantity", OnlyInt: true, Required: true},
			&core.NumberField{Name: "sold", OnlyInt: true},
			&core.DateField{Name: "sales_start"},
			&core.DateField{Name: "sales_end"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_ticket_tiers_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_tiers")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
