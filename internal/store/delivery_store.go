package store

import (
	"database/sql"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DeliveryStore remembers webhook delivery IDs so redelivered hooks do
// not enqueue duplicate events. Entries live in a shared in-memory
// database and expire on their own.
type DeliveryStore struct {
	DB *sql.DB
}

func NewDeliveryStore() *DeliveryStore {
	db, err := sql.Open("sqlite", "file:deliveries?mode=memory&cache=shared")
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(
		`create table if not exists deliveries (
			delivery_id text primary key,
			expires timestamp not null
		)`,
	); err != nil {
		log.Fatal(err)
	}
	return &DeliveryStore{DB: db}
}

func (ds *DeliveryStore) ScheduleDailyCleanUp(s gocron.Scheduler) {
	if _, err := s.NewJob(gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))), gocron.NewTask(func() {
		if err := ds.RemoveExpired(); err != nil {
			log.Println("err deleting expired delivery ids:", err)
		}
	})); err != nil {
		log.Fatal(err)
	}
}

func (ds *DeliveryStore) Add(deliveryID string, expires time.Time) error {
	query := "insert into deliveries (delivery_id, expires) values($1, $2)"
	_, err := ds.DB.Exec(query, deliveryID, formatTime(expires))
	return err
}

func (ds *DeliveryStore) Seen(deliveryID string) (bool, error) {
	query := "select count(*) from deliveries where delivery_id = $1 and expires >= CURRENT_TIMESTAMP"
	var count int64
	err := ds.DB.QueryRow(query, deliveryID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ds *DeliveryStore) RemoveExpired() error {
	query := "delete from deliveries where expires < CURRENT_TIMESTAMP"
	_, err := ds.DB.Exec(query)
	return err
}
