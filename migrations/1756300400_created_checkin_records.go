package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("checkin_records")

		collection.Fields.Add(
			&core.TextField{Name: "venue_id", Required: true},
			&core.TextField{Name: "event_id"},
			&core.TextField{Name: "ticket_id"},
			&core.TextField{Name: "guest_entry_id"},
			&core.SelectField{Name: "method", Values: []string{"qr_code", "guest_list", "manual"}, MaxSelect: 1, Required: true},
			&core.TextField{Name: "staff_id", Required: true},
			&core.DateField{Name: "checked_in_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_checkins_ticket", false, "ticket_id", "")
		collection.AddIndex("idx_checkins_guest", false, "guest_entry_id", "")
		collection.AddIndex("idx_checkins_event", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("checkin_records")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
