package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("spend_rules")

		collection.Fields.Add(
			&core.TextField{Name: "venue_id", Required: true},
			// threshold in minor currency units
			&core.NumberField{Name: "threshold", OnlyInt: true, Required: true},
			&core.NumberField{Name: "window_days", OnlyInt: true},
			&core.TextField{Name: "live_start", Pattern: `^([01]\d|2[0-3]):[0-5]\d$`},
			&core.TextField{Name: "live_end", Pattern: `^([01]\d|2[0-3]):[0-5]\d$`},
			&core.TextField{Name: "tier", Required: true},
			&core.TextField{Name: "access_level"},
			&core.BoolField{Name: "active"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_spend_rules_venue", false, "venue_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("spend_rules")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
