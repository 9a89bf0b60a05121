package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("pos_cursors")

		collection.Fields.Add(
			&core.SelectField{Name: "provider", Values: []string{"toast", "square"}, MaxSelect: 1, Required: true},
			&core.TextField{Name: "venue_id", Required: true},
			&core.DateField{Name: "last_sync_at"},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_pos_cursors_pair", true, "provider, venue_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pos_cursors")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
