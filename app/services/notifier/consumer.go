package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dgraph-io/badger/v4"

	v1 "github.com/christianberko/orobor-website/api/v1"
	"github.com/christianberko/orobor-website/core/httpio"
	"github.com/christianberko/orobor-website/core/publisher"
)

func (app *application) consumeLabels(ctx context.Context) error {
	topic := "LabelCreated"
	app.log.Info("Started consuming messages", "topic", topic)

	err := app.consumer.Subscribe(topic, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := app.consumer.ReadMessage(10 * time.Second)
			if err != nil {
				if !err.(kafka.Error).IsTimeout() {
					app.log.Error("consuming", "error", err)
				}
				continue
			}

			var created v1.LabelCreated
			err = httpio.Decode(bytes.NewReader(msg.Value), &created)
			if err != nil {
				app.handleError(created, err)
				continue
			}

			app.log.Info("Label created", "tracking_number", created.Order.TrackingNumber)
			handled, err := app.alreadyHandled(created.Header.ID)
			if err != nil {
				app.handleError(created, err)
				continue
			}
			if handled {
				app.log.Info("Event already handled", "event_id", created.Header.ID)
				continue
			}
			if err := app.saveMessage(created.Header.ID); err != nil {
				app.log.Error("failed saving message", "error", err.Error())
			}

			app.sendNotification(ctx, created)
		}
	}
}

func (app *application) alreadyHandled(eventID string) (bool, error) {
	found := false
	err := app.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(eventID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (app *application) saveMessage(eventID string) error {
	return app.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(eventID), []byte("1")).WithTTL(7 * 24 * time.Hour)
		return txn.SetEntry(e)
	})
}

func (app *application) handleError(created v1.LabelCreated, err error) {
	app.log.Error(err.Error())
	app.publishError(created)
}

func (app *application) publishError(created v1.LabelCreated) error {
	var topic string = "DeadLetterQueue"
	errorEvent := v1.LabelEventError{
		Header: v1.NewHeader(),
		Event:  created,
	}
	if err := publisher.PublishEvent(app.config.Kafka.server, topic, errorEvent); err != nil {
		return err
	}
	return nil
}

func (app *application) sendNotification(ctx context.Context, created v1.LabelCreated) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	app.log.Info(
		"Sending label confirmation",
		"recipient", created.Order.ShipperName,
		"subject", fmt.Sprintf("Your %s label is ready", created.Order.ServiceName),
		"tracking_number", created.Order.TrackingNumber,
	)
	return nil
}
