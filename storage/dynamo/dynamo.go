// Package dynamo provides the DynamoDB storage.Backend driver.
package dynamo

import (
	"context"
	"iter"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// Backend implements storage.Backend on DynamoDB.
type Backend struct {
	client *dynamodb.Client
	prefix string
}

// New wraps a DynamoDB client. Table names are prefixed with prefix, which
// may be empty.
func New(client *dynamodb.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) tableName(table string) *string {
	return aws.String(b.prefix + table)
}

// Put upserts one record.
func (b *Backend) Put(ctx context.Context, table string, rec storage.Record) error {
	_, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: b.tableName(table),
		Item:      encodeRecord(rec),
	})
	if err != nil {
		return errors.WrapPersistence(err, "put item failed")
	}
	return nil
}

// PutIf upserts one record guarded by a condition expression.
func (b *Backend) PutIf(ctx context.Context, table string, rec storage.Record, cond storage.Condition) error {
	input := &dynamodb.PutItemInput{
		TableName:           b.tableName(table),
		Item:                encodeRecord(rec),
		ConditionExpression: aws.String(cond.Expression),
	}
	if len(cond.Names) > 0 {
		input.ExpressionAttributeNames = cond.Names
	}
	if len(cond.Values) > 0 {
		input.ExpressionAttributeValues = encodeValues(cond.Values)
	}

	_, err := b.client.PutItem(ctx, input)
	if err != nil {
		var checkFailed *types.ConditionalCheckFailedException
		if errors.As(err, &checkFailed) {
			return errors.WithStack(errors.ErrConditionFailed)
		}
		return errors.WrapPersistence(err, "conditional put failed")
	}
	return nil
}

// Get is a point lookup by primary key.
func (b *Backend) Get(ctx context.Context, table string, key storage.Record) (storage.Record, bool, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: b.tableName(table),
		Key:       encodeRecord(key),
	})
	if err != nil {
		return storage.Record{}, false, errors.WrapPersistence(err, "get item failed")
	}
	if len(out.Item) == 0 {
		return storage.Record{}, false, nil
	}
	return decodeItem(out.Item), true, nil
}

// Delete removes a record; deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, table string, key storage.Record) error {
	_, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: b.tableName(table),
		Key:       encodeRecord(key),
	})
	if err != nil {
		return errors.WrapPersistence(err, "delete item failed")
	}
	return nil
}

// Scan lazily yields records matching the filter, following scan pagination.
func (b *Backend) Scan(ctx context.Context, table string, filter storage.Filter) iter.Seq2[storage.Record, error] {
	input := &dynamodb.ScanInput{TableName: b.tableName(table)}
	if filter.Expression != "" {
		input.FilterExpression = aws.String(filter.Expression)
		if len(filter.Names) > 0 {
			input.ExpressionAttributeNames = filter.Names
		}
		if len(filter.Values) > 0 {
			input.ExpressionAttributeValues = encodeValues(filter.Values)
		}
	}

	return func(yield func(storage.Record, error) bool) {
		paginator := dynamodb.NewScanPaginator(b.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(storage.Record{}, errors.WrapPersistence(err, "scan failed"))
				return
			}
			for _, item := range page.Items {
				if !yield(decodeItem(item), nil) {
					return
				}
			}
		}
	}
}

// BatchWrite upserts up to 25 records in one BatchWriteItem call and maps
// unprocessed items back to records for the caller to retry.
func (b *Backend) BatchWrite(ctx context.Context, table string, recs []storage.Record) ([]storage.Record, error) {
	if len(recs) > storage.MaxBatchWriteItems {
		return nil, errors.Newf("batch of %d exceeds the %d item limit", len(recs), storage.MaxBatchWriteItems)
	}

	writes := make([]types.WriteRequest, 0, len(recs))
	for _, rec := range recs {
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: encodeRecord(rec)},
		})
	}

	physicalTable := *b.tableName(table)
	out, err := b.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{physicalTable: writes},
	})
	if err != nil {
		return nil, errors.WrapPersistence(err, "batch write failed")
	}

	var unprocessed []storage.Record
	for _, req := range out.UnprocessedItems[physicalTable] {
		if req.PutRequest != nil {
			unprocessed = append(unprocessed, decodeItem(req.PutRequest.Item))
		}
	}
	return unprocessed, nil
}

func encodeRecord(rec storage.Record) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, rec.Len())
	for _, f := range rec.Fields() {
		item[f.Name] = encodeValue(f.Value)
	}
	return item
}

func encodeValues(values map[string]storage.Value) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(values))
	for k, v := range values {
		out[k] = encodeValue(v)
	}
	return out
}

func encodeValue(v storage.Value) types.AttributeValue {
	switch v.Kind {
	case storage.KindString:
		if v.S == "" {
			return &types.AttributeValueMemberNULL{Value: true}
		}
		return &types.AttributeValueMemberS{Value: v.S}
	case storage.KindNumber:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.N, 10)}
	case storage.KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.B}
	case storage.KindList:
		list := make([]types.AttributeValue, 0, len(v.L))
		for _, elem := range v.L {
			list = append(list, encodeValue(elem))
		}
		return &types.AttributeValueMemberL{Value: list}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

func decodeItem(item map[string]types.AttributeValue) storage.Record {
	var rec storage.Record
	for name, av := range item {
		rec.Set(name, decodeValue(av))
	}
	return rec
}

func decodeValue(av types.AttributeValue) storage.Value {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storage.String(v.Value)
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return storage.Absent()
		}
		return storage.Number(n)
	case *types.AttributeValueMemberBOOL:
		return storage.Bool(v.Value)
	case *types.AttributeValueMemberNULL:
		return storage.String("")
	case *types.AttributeValueMemberL:
		list := make([]storage.Value, 0, len(v.Value))
		for _, elem := range v.Value {
			list = append(list, decodeValue(elem))
		}
		return storage.List(list...)
	default:
		return storage.Absent()
	}
}
