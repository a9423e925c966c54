package versions

import (
	"fieldops_portal/portal/schema"
	"log"

	"gorm.io/gorm"
)

func Migration_0_initial_migration(txn *gorm.DB) error {
	log.Println("performing initial portal schema migration")

	err := txn.Migrator().AutoMigrate(schema.AllTables()...)
	if err != nil {
		return err
	}

	log.Println("initial portal schema migration complete")

	return nil
}
