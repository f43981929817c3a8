package common

import (
	"fmt"
	"log"
	"time"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"

	"github.com/google/uuid"
)

const ExpiryTopic = "TransactionExpiry"

// ScheduleTransactionExpiry persists a durable JobTask and arms an in-process
// one-shot job at the payment deadline. The JobTask row is what survives a
// restart; boot re-arms every pending row.
func ScheduleTransactionExpiry(txnUUID uuid.UUID, runsAt time.Time) (string, error) {
	jobTask := models.JobTask{
		Name:    fmt.Sprintf("Transaction_%s_Expiry", txnUUID.String()),
		JobType: "OneTimeJobStartDateTime",
		RunsAt:  runsAt,
		Payload: map[string]any{
			"uuid": txnUUID.String(),
		},
		Topic: ExpiryTopic,
	}
	gdb := db.GetDb()
	if err := gdb.Create(&jobTask).Error; err != nil {
		return "", err
	}
	jobID := jobTask.ID

	id, err := lib.ScheduleOneTime(runsAt, func() {
		FireExpiry(jobID, txnUUID.String())
	})
	if err != nil {
		log.Printf("Error arming expiry job for transaction %s: %s\n", txnUUID.String(), err.Error())
		return jobID.String(), err
	}
	log.Printf("Scheduled expiry job %s (task %s) for transaction %s at %s\n", *id, jobID.String(), txnUUID.String(), runsAt)
	return jobID.String(), nil
}

// FireExpiry runs the expiry transition and marks the backing JobTask done.
// Delivery is at-least-once: a duplicate firing finds a terminal transaction
// and still succeeds, and a failed firing leaves the task pending so boot
// recovery retries it.
func FireExpiry(jobID uuid.UUID, txnUUID string) {
	if err := ExpireTransaction(txnUUID); err != nil {
		log.Printf("Error expiring transaction %s: %s\n", txnUUID, err.Error())
		return
	}
	gdb := db.GetDb()
	err := gdb.
		Model(&models.JobTask{}).
		Where(&models.JobTask{ID: jobID}).
		Update("status", "done").
		Error
	if err != nil {
		log.Printf("Error updating job task %s: %s\n", jobID.String(), err.Error())
	}
}

// RecoverPendingExpiries re-arms every pending expiry task after a restart.
// Overdue tasks fire immediately.
func RecoverPendingExpiries() error {
	gdb := db.GetDb()
	var jobTasks []models.JobTask
	err := gdb.
		Model(&models.JobTask{}).
		Where(&models.JobTask{Status: "pending", Topic: ExpiryTopic}).
		Order("runs_at asc").
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving pending jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending expiry jobs", len(jobTasks))

	now := time.Now()
	for _, jobTask := range jobTasks {
		txnUUID, ok := jobTask.Payload["uuid"].(string)
		if !ok {
			log.Printf("Job task %s has no transaction uuid. Skipping\n", jobTask.ID.String())
			continue
		}
		if !jobTask.RunsAt.After(now) {
			log.Printf("Job task %s is overdue, firing now\n", jobTask.ID.String())
			go FireExpiry(jobTask.ID, txnUUID)
			continue
		}
		jobID := jobTask.ID
		if _, err := lib.ScheduleOneTime(jobTask.RunsAt, func() {
			FireExpiry(jobID, txnUUID)
		}); err != nil {
			log.Printf("Failed to re-arm job task %s. Skipping: %s\n", jobTask.ID.String(), err.Error())
			continue
		}
		log.Printf("Re-armed expiry job task %s for %s\n", jobTask.ID.String(), jobTask.RunsAt)
	}
	return nil
}
