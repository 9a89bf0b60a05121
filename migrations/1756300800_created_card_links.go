package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("card_links")

		collection.Fields.Add(
			&core.TextField{Name: "user_id", Required: true},
			// pseudonymous token from the POS provider, never a PAN.
			&core.TextField{Name: "card_token", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		// a card maps to at most one user.
		collection.AddIndex("idx_card_links_token", true, "card_token", "")
		collection.AddIndex("idx_card_links_user", false, "user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("card_links")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
