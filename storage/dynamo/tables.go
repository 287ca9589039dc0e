package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
	"github.com/lukeryannetnz/quartz-dynamo/logger"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// Bootstrap creates every job-store table that does not already exist.
// The first key attribute becomes the hash key, the second (if any) the
// range key; all key attributes are strings.
func (b *Backend) Bootstrap(ctx context.Context) error {
	for _, def := range storage.Tables {
		if err := b.createTable(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) createTable(ctx context.Context, def storage.TableDef) error {
	attrs := make([]types.AttributeDefinition, 0, len(def.KeyAttrs))
	schema := make([]types.KeySchemaElement, 0, len(def.KeyAttrs))
	for i, attr := range def.KeyAttrs {
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(attr),
			AttributeType: types.ScalarAttributeTypeS,
		})
		keyType := types.KeyTypeHash
		if i > 0 {
			keyType = types.KeyTypeRange
		}
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(attr),
			KeyType:       keyType,
		})
	}

	_, err := b.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            b.tableName(def.Name),
		AttributeDefinitions: attrs,
		KeySchema:            schema,
		BillingMode:          types.BillingModePayPerRequest,
	})
	if err != nil {
		var exists *types.ResourceInUseException
		if errors.As(err, &exists) {
			return nil
		}
		return errors.WrapPersistence(err, "create table failed")
	}

	logger.Infow("Created table", "table", *b.tableName(def.Name))
	return nil
}
