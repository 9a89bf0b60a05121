package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("venues")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "address"},
			&core.SelectField{Name: "pos_provider", Values: []string{"toast", "square"}, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_venues_pos_provider", false, "pos_provider", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
