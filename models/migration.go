package models

import (
	"log"

	"github.com/wellsitefocus/rigup_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&FlangeSpec{}, &WrenchRef{},
		&Stack{}, &StackMember{},
		&ReportFile{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
