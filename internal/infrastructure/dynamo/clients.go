package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/addr-verify-api/internal/domain"
)

// counterID is the reserved key of the id-allocation item inside the clients
// table. Real records always have id >= 1; every read path filters it out.
const counterID = 0

// batchWriteMax is DynamoDB's hard cap on items per BatchWriteItem call.
const batchWriteMax = 25

// ClientRepo provides typed DynamoDB operations for the clients table.
type ClientRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewClientRepo(client *dynamodb.Client, tableName string) *ClientRepo {
	return &ClientRepo{client: client, tableName: tableName}
}

// NextID atomically allocates the next numeric record id.
func (r *ClientRepo) NextID(ctx context.Context) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              numKey("id", counterID),
		UpdateExpression: aws.String("ADD seq_value :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("allocate client id: %w", err)
	}
	n, ok := out.Attributes["seq_value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("allocate client id: unexpected counter attribute")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func (r *ClientRepo) Put(ctx context.Context, c *domain.ClientRecord) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal client: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ClientRepo) Get(ctx context.Context, id int64) (*domain.ClientRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       numKey("id", id),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("client %d: %w", id, domain.ErrNotFound)
	}
	var c domain.ClientRecord
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (*domain.ClientRecord, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *ClientRepo) GetByClientNumber(ctx context.Context, clientNumber string) (*domain.ClientRecord, error) {
	return r.queryGSI(ctx, "client_number-index", "client_number", clientNumber)
}

func (r *ClientRepo) GetByToken(ctx context.Context, token string) (*domain.ClientRecord, error) {
	return r.queryGSI(ctx, "token-index", "verification_token", token)
}

// Update applies a partial field update and returns the record as written.
// last_updated is always bumped.
func (r *ClientRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error) {
	updates["last_updated"] = time.Now().UTC().Format(time.RFC3339Nano)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       numKey("id", id),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var c domain.ClientRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// BatchUpsert overwrites the given records by id. The caller batches at its
// own granularity; this method re-chunks to DynamoDB's 25-item BatchWriteItem
// cap and retries unprocessed items once before failing.
func (r *ClientRepo) BatchUpsert(ctx context.Context, records []domain.ClientRecord) error {
	for start := 0; start < len(records); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		writes := make([]types.WriteRequest, 0, len(chunk))
		for i := range chunk {
			item, err := attributevalue.MarshalMap(&chunk[i])
			if err != nil {
				return fmt.Errorf("marshal client %d: %w", chunk[i].ID, err)
			}
			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		pending := map[string][]types.WriteRequest{r.tableName: writes}
		for attempt := 0; len(pending[r.tableName]) > 0; attempt++ {
			if attempt > 1 {
				return errors.New("batch write: unprocessed items after retry")
			}
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return fmt.Errorf("batch write: %w", err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// ScanAll returns every client record in the table, ordered by id.
func (r *ClientRepo) ScanAll(ctx context.Context) ([]domain.ClientRecord, error) {
	records, err := r.scanFiltered(ctx, "", "")
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Page returns one page of records filtered by status and/or a search term
// matched against name, client number, email and phone. Records are ordered
// by last_updated, newest first. Returns the page and the total match count.
//
// DynamoDB has no offset pagination, so this filters a full scan and slices
// in memory; the clients table is admin-dashboard sized, not event sized.
func (r *ClientRepo) Page(ctx context.Context, page, limit int, status, search string) ([]domain.ClientRecord, int, error) {
	records, err := r.scanFiltered(ctx, status, search)
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUpdated.After(records[j].LastUpdated)
	})

	total := len(records)
	from := (page - 1) * limit
	if from >= total {
		return []domain.ClientRecord{}, total, nil
	}
	to := from + limit
	if to > total {
		to = total
	}
	return records[from:to], total, nil
}

// CountByStatus counts records with the given status via the status GSI.
func (r *ClientRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var total int
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("status-index"),
			KeyConditionExpression:    aws.String("#s = :v"),
			ExpressionAttributeNames:  map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: status}},
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// CountUpdatedSince counts records in the given status whose last_updated is
// at or after t.
func (r *ClientRepo) CountUpdatedSince(ctx context.Context, status string, t time.Time) (int, error) {
	var total int
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                aws.String(r.tableName),
			IndexName:                aws.String("status-index"),
			KeyConditionExpression:   aws.String("#s = :v"),
			FilterExpression:         aws.String("last_updated >= :t"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":v": &types.AttributeValueMemberS{Value: status},
				":t": &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *ClientRepo) scanFiltered(ctx context.Context, status, search string) ([]domain.ClientRecord, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("id > :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: strconv.Itoa(counterID)},
		},
	}
	if status != "" && status != "all" {
		input.FilterExpression = aws.String("id > :zero AND #s = :status")
		input.ExpressionAttributeNames = map[string]string{"#s": "status"}
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: status}
	}

	var records []domain.ClientRecord
	var startKey map[string]types.AttributeValue
	for {
		input.ExclusiveStartKey = startKey
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.ClientRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		records = append(records, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if search == "" {
		return records, nil
	}
	needle := strings.ToLower(search)
	matched := records[:0]
	for _, c := range records {
		if matchesSearch(&c, needle) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func matchesSearch(c *domain.ClientRecord, needle string) bool {
	fields := []string{c.FirstName, c.LastName, c.ClientNumber, c.Email, c.PhoneNumber}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (r *ClientRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.ClientRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("client by %s: %w", attr, domain.ErrNotFound)
	}
	var c domain.ClientRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}
