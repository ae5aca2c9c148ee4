// Package ingress adapts inbound transports (Lambda stream events and Kafka
// messages) to change batches for the dispatch controller.
package ingress

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"cdcrouter/pkg/models"
)

// ToBatch converts a DynamoDB stream event, keeping keys and images in
// attribute-value JSON form.
func ToBatch(event events.DynamoDBEvent) (models.ChangeBatch, error) {
	records := make([]models.ChangeRecord, 0, len(event.Records))

	for i, r := range event.Records {
		rec, err := toRecord(r)
		if err != nil {
			return models.ChangeBatch{}, fmt.Errorf("record %d (%s): %w", i, r.EventID, err)
		}
		records = append(records, rec)
	}

	return models.NewChangeBatch(records...), nil
}

func toRecord(r events.DynamoDBEventRecord) (models.ChangeRecord, error) {
	keys, err := marshalAttributes(r.Change.Keys)
	if err != nil {
		return models.ChangeRecord{}, fmt.Errorf("keys: %w", err)
	}
	oldImage, err := marshalAttributes(r.Change.OldImage)
	if err != nil {
		return models.ChangeRecord{}, fmt.Errorf("old image: %w", err)
	}
	newImage, err := marshalAttributes(r.Change.NewImage)
	if err != nil {
		return models.ChangeRecord{}, fmt.Errorf("new image: %w", err)
	}

	return models.ChangeRecord{
		EventID:          r.EventID,
		ChangeType:       models.ChangeType(r.EventName),
		OriginIdentifier: r.EventSourceArn,
		Region:           r.AWSRegion,
		SequenceNumber:   r.Change.SequenceNumber,
		ApproximateTime:  r.Change.ApproximateCreationDateTime.Time,
		Keys:             keys,
		OldImage:         oldImage,
		NewImage:         newImage,
	}, nil
}

func marshalAttributes(attrs map[string]events.DynamoDBAttributeValue) (json.RawMessage, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	return data, nil
}
