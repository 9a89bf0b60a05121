package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("venue_staff")

		collection.Fields.Add(
			&core.TextField{Name: "user_id", Required: true},
			&core.TextField{Name: "venue_id", Required: true},
			&core.SelectField{Name: "role", Values: []string{"door", "manager"}, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_venue_staff_pair", true, "user_id, venue_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("venue_staff")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
