package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tuition-notify/internal/pkg/chunk"
)

// MaxTransactItems is the most operations DynamoDB accepts in one TransactWriteItems call.
const MaxTransactItems = 100

// WriteOp is one put or delete inside a chunked commit. Exactly one of Item and Key is set.
type WriteOp struct {
	Table string
	Item  map[string]types.AttributeValue
	Key   map[string]types.AttributeValue
}

// PutOp marshals v into a put against table.
func PutOp(table string, v interface{}) (WriteOp, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return WriteOp{}, fmt.Errorf("marshal %s item: %w", table, err)
	}
	return WriteOp{Table: table, Item: item}, nil
}

// DeleteOp deletes the item with a single string key.
func DeleteOp(table, keyName, keyValue string) WriteOp {
	return WriteOp{Table: table, Key: strKey(keyName, keyValue)}
}

func (op WriteOp) transactItem() types.TransactWriteItem {
	if op.Key != nil {
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(op.Table),
			Key:       op.Key,
		}}
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(op.Table),
		Item:      op.Item,
	}}
}

// TxWriter commits large write sets as a sequence of atomic transactions.
type TxWriter struct {
	client    API
	chunkSize int
}

// NewTxWriter returns a writer committing at most chunkSize operations per
// transaction. Sizes outside 1..MaxTransactItems fall back to MaxTransactItems.
func NewTxWriter(client API, chunkSize int) *TxWriter {
	if chunkSize < 1 || chunkSize > MaxTransactItems {
		chunkSize = MaxTransactItems
	}
	return &TxWriter{client: client, chunkSize: chunkSize}
}

// ChunkSize is the number of operations committed per transaction.
func (w *TxWriter) ChunkSize() int { return w.chunkSize }

// Commit writes ops in ceil(len(ops)/chunkSize) transactions, in order. It stops at the
// first failing chunk and reports how many operations were committed before it.
// Chunks committed earlier are not rolled back.
func (w *TxWriter) Commit(ctx context.Context, ops []WriteOp) (int, error) {
	committed := 0
	for i, c := range chunk.Split(ops, w.chunkSize) {
		items := make([]types.TransactWriteItem, len(c))
		for j, op := range c {
			items[j] = op.transactItem()
		}
		if _, err := w.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return committed, storeErr(fmt.Sprintf("commit chunk %d", i), err)
		}
		committed += len(c)
	}
	return committed, nil
}
