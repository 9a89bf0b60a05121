package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("guest_list_entries")

		collection.Fields.Add(
			&core.TextField{Name: "venue_id", Required: true},
			&core.TextField{Name: "event_id"},
			&core.TextField{Name: "user_id"},
			&core.TextField{Name: "guest_name"},
			&core.TextField{Name: "guest_contact"},
			&core.NumberField{Name: "plus_ones", OnlyInt: true},
			&core.SelectField{Name: "status", Values: []string{"pending", "confirmed", "checked_in", "no_show", "removed"}, MaxSelect: 1, Required: true},
			&core.TextField{Name: "added_by", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_guest_entries_event", false, "event_id", "")
		collection.AddIndex("idx_guest_entries_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("guest_list_entries")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
