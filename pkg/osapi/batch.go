package osapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrSharedResource           = errors.New("resource appears in more than one batch operation")
	ErrNilResource              = errors.New("batch operation has no resource")
)

// BatchOperation is one lifecycle call in a batch.
type BatchOperation struct {
	ID       string
	Type     Capability // CapCreate, CapRetrieve, CapUpdate or CapDelete
	Resource *Resource
	Params   Params // create only
	Callback func(result *BatchResult)
}

// BatchResult is the outcome of a BatchOperation.
type BatchResult struct {
	ID       string
	Success  bool
	Resource *Resource
	Error    error
	Duration time.Duration
}

// BatchExecutor runs lifecycle calls on independent resources concurrently.
// A resource must not appear twice in one batch since resources are not safe
// for concurrent use.
type BatchExecutor struct {
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the per operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs operations and returns their results in input order. The
// error is non-nil only when the batch itself is malformed.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	seen := make(map[*Resource]string, len(operations))

	for _, operation := range operations {
		if operation.Resource == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilResource, operation.ID)
		}

		if other, ok := seen[operation.Resource]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrSharedResource, other, operation.ID)
		}

		seen[operation.Resource] = operation.ID
	}

	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID, Resource: operation.Resource}

	var err error

	switch operation.Type {
	case CapCreate:
		_, err = operation.Resource.Create(ctx, operation.Params)
	case CapRetrieve:
		err = operation.Resource.Retrieve(ctx)
	case CapUpdate:
		err = operation.Resource.Update(ctx)
	case CapDelete:
		err = operation.Resource.Delete(ctx)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}

	result.Success = err == nil
	result.Error = err

	return result
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddCreate adds a create operation.
func (b *BatchBuilder) AddCreate(id string, res *Resource, params Params) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: CapCreate, Resource: res, Params: params})
}

// AddRetrieve adds a retrieve operation.
func (b *BatchBuilder) AddRetrieve(id string, res *Resource) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: CapRetrieve, Resource: res})
}

// AddUpdate adds an update operation.
func (b *BatchBuilder) AddUpdate(id string, res *Resource) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: CapUpdate, Resource: res})
}

// AddDelete adds a delete operation.
func (b *BatchBuilder) AddDelete(id string, res *Resource) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: CapDelete, Resource: res})
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
