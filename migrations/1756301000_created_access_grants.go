package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("access_grants")

		collection.Fields.Add(
			&core.TextField{Name: "user_id", Required: true},
			&core.TextField{Name: "venue_id", Required: true},
			&core.TextField{Name: "tier", Required: true},
			// empty for manual admin grants
			&core.TextField{Name: "rule_id"},
			&core.DateField{Name: "unlocked_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		// grants are monotonic: one row per (user, venue, tier), forever.
		collection.AddIndex("idx_access_grants_unique", true, "user_id, venue_id, tier", "")
		collection.AddIndex("idx_access_grants_user", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("access_grants")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
