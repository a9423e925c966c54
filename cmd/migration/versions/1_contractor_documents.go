package versions

import (
	"log"

	"gorm.io/gorm"
)

// Adds the json encoded document list to contractors created before document
// uploads existed.
func Migration_1_contractor_documents(txn *gorm.DB) error {
	log.Println("backfilling contractor document lists")

	type Contractor struct {
		Documents string
	}

	if !txn.Migrator().HasColumn(&Contractor{}, "Documents") {
		if err := txn.Migrator().AddColumn(&Contractor{}, "Documents"); err != nil {
			return err
		}
	}

	result := txn.Model(&Contractor{}).Where("documents IS NULL OR documents = ''").Update("documents", "[]")
	if result.Error != nil {
		return result.Error
	}

	log.Println("contractor document backfill complete")

	return nil
}
