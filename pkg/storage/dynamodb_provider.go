package storage

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/flowman-io/flowman/pkg/flow"
)

// DynamoDBProvider implements the Provider interface using DynamoDB
type DynamoDBProvider struct {
	client         dynamodbiface.DynamoDBAPI
	flowStore      *DynamoDBFlowStore
	executionStore *DynamoDBExecutionStore
}

// DynamoDBProviderConfig contains configuration for the DynamoDB provider
type DynamoDBProviderConfig struct {
	Region      string
	TablePrefix string
	Endpoint    string // Optional, for local DynamoDB
}

// NewDynamoDBProvider creates a new DynamoDB storage provider
func NewDynamoDBProvider(config DynamoDBProviderConfig) (*DynamoDBProvider, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}

	// Set endpoint for local DynamoDB if provided
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewDynamoDBProviderWithClient(dynamodb.New(sess), config.TablePrefix), nil
}

// NewDynamoDBProviderWithClient creates a provider around an existing
// client. Used by tests with a mocked DynamoDB API.
func NewDynamoDBProviderWithClient(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBProvider {
	return &DynamoDBProvider{
		client:         client,
		flowStore:      &DynamoDBFlowStore{client: client, tableName: tablePrefix + "flows"},
		executionStore: &DynamoDBExecutionStore{client: client, tableName: tablePrefix + "executions"},
	}
}

// Initialize sets up the storage backend
func (p *DynamoDBProvider) Initialize() error {
	if err := ensureTable(p.client, p.flowStore.tableName); err != nil {
		return fmt.Errorf("failed to initialize flow store: %w", err)
	}
	if err := ensureTable(p.client, p.executionStore.tableName); err != nil {
		return fmt.Errorf("failed to initialize execution store: %w", err)
	}
	return nil
}

// Close cleans up resources
func (p *DynamoDBProvider) Close() error {
	// Nothing to close for DynamoDB client
	return nil
}

// GetFlowStore returns a store for flow definitions
func (p *DynamoDBProvider) GetFlowStore() FlowStore {
	return p.flowStore
}

// GetExecutionStore returns a store for execution data
func (p *DynamoDBProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// ensureTable creates the table with a string "id" hash key if it does
// not exist yet
func ensureTable(client dynamodbiface.DynamoDBAPI, tableName string) error {
	_, err := client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return nil
	}

	aerr, ok := err.(awserr.Error)
	if !ok || aerr.Code() != dynamodb.ErrCodeResourceNotFoundException {
		return fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}

	_, err = client.CreateTable(&dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	if err := client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", tableName, err)
	}
	return nil
}

// putDocument stores a JSON document under the given ID
func putDocument(client dynamodbiface.DynamoDBAPI, tableName string, id string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	_, err = client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"id":       {S: aws.String(id)},
			"document": {S: aws.String(string(data))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put document %s: %w", id, err)
	}
	return nil
}

// getDocument loads a JSON document by ID; found is false when the item
// does not exist
func getDocument(client dynamodbiface.DynamoDBAPI, tableName string, id string, doc interface{}) (bool, error) {
	result, err := client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(id)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if result.Item == nil {
		return false, nil
	}

	raw := result.Item["document"]
	if raw == nil || raw.S == nil {
		return false, fmt.Errorf("document %s has no body", id)
	}
	if err := json.Unmarshal([]byte(*raw.S), doc); err != nil {
		return false, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	return true, nil
}

// scanDocuments loads every JSON document in the table, delivering each
// raw body to the decode callback
func scanDocuments(client dynamodbiface.DynamoDBAPI, tableName string, decode func(data []byte) error) error {
	input := &dynamodb.ScanInput{TableName: aws.String(tableName)}
	for {
		result, err := client.Scan(input)
		if err != nil {
			return fmt.Errorf("failed to scan table %s: %w", tableName, err)
		}

		for _, item := range result.Items {
			raw := item["document"]
			if raw == nil || raw.S == nil {
				continue
			}
			if err := decode([]byte(*raw.S)); err != nil {
				return err
			}
		}

		if result.LastEvaluatedKey == nil {
			return nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// deleteDocument removes a document by ID; found is false when no item
// was there to delete
func deleteDocument(client dynamodbiface.DynamoDBAPI, tableName string, id string) (bool, error) {
	result, err := client.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(id)},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return len(result.Attributes) > 0, nil
}

// DynamoDBFlowStore implements the FlowStore interface using DynamoDB
type DynamoDBFlowStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// SaveFlow persists a flow definition, keyed by its ID
func (s *DynamoDBFlowStore) SaveFlow(def flow.Definition) error {
	return putDocument(s.client, s.tableName, def.ID, def)
}

// GetFlow retrieves a flow definition
func (s *DynamoDBFlowStore) GetFlow(flowID string) (flow.Definition, error) {
	var def flow.Definition
	found, err := getDocument(s.client, s.tableName, flowID, &def)
	if err != nil {
		return flow.Definition{}, err
	}
	if !found {
		return flow.Definition{}, fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	return def, nil
}

// ListFlows returns all stored flow definitions
func (s *DynamoDBFlowStore) ListFlows() ([]flow.Definition, error) {
	var defs []flow.Definition
	err := scanDocuments(s.client, s.tableName, func(data []byte) error {
		var def flow.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("failed to unmarshal flow document: %w", err)
		}
		defs = append(defs, def)
		return nil
	})
	return defs, err
}

// DeleteFlow removes a flow definition
func (s *DynamoDBFlowStore) DeleteFlow(flowID string) error {
	found, err := deleteDocument(s.client, s.tableName, flowID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	return nil
}

// DynamoDBExecutionStore implements the ExecutionStore interface using
// DynamoDB
type DynamoDBExecutionStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// SaveExecution persists an execution state
func (s *DynamoDBExecutionStore) SaveExecution(state flow.ExecutionState) error {
	return putDocument(s.client, s.tableName, state.ExecutionID, state)
}

// GetExecution retrieves an execution state
func (s *DynamoDBExecutionStore) GetExecution(executionID string) (flow.ExecutionState, error) {
	var state flow.ExecutionState
	found, err := getDocument(s.client, s.tableName, executionID, &state)
	if err != nil {
		return flow.ExecutionState{}, err
	}
	if !found {
		return flow.ExecutionState{}, fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return state, nil
}

// ListExecutions returns all stored execution states
func (s *DynamoDBExecutionStore) ListExecutions() ([]flow.ExecutionState, error) {
	var states []flow.ExecutionState
	err := scanDocuments(s.client, s.tableName, func(data []byte) error {
		var state flow.ExecutionState
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("failed to unmarshal execution document: %w", err)
		}
		states = append(states, state)
		return nil
	})
	return states, err
}

// DeleteExecution removes an execution state
func (s *DynamoDBExecutionStore) DeleteExecution(executionID string) error {
	found, err := deleteDocument(s.client, s.tableName, executionID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return nil
}
