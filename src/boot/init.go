package boot

import (
	"log"
	"veeniu/src/common"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Ticket{},
		&models.Voucher{},
		&models.Transaction{},
		&models.TransactionDetail{},
		&models.Reward{},
		&models.EventAttendee{},
		&models.Review{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the in-process scheduler and re-arms every pending
// expiry task so no transaction is left unexpired after a restart.
func InitScheduler() {
	lib.StartScheduler()
	if err := common.RecoverPendingExpiries(); err != nil {
		log.Printf("Error recovering pending expiry jobs: %s\n", err.Error())
	}
}

func StopScheduler() {
	lib.StopScheduler()
}
