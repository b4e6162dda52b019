package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hatlonely/odbx/odb/batch"
	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/pkg/errors"
)

// CreateTransaction 创建绑定到会话的批量操作，atomic 为 true 时服务端在一个事务中执行
func (s *Session) CreateTransaction(atomic bool) *batch.Batch {
	return batch.New(atomic, s)
}

// SubmitBatch 将批量操作作为一个请求提交到 batch/<db>
func (s *Session) SubmitBatch(ctx context.Context, b *batch.Batch) result.Result {
	params, ok := s.gate()
	if !ok {
		return result.NotConnected()
	}
	if b == nil {
		return result.ParametersError("batch is nil")
	}

	body, err := json.Marshal(b)
	if err != nil {
		return result.ParametersError(errors.Wrap(err, "marshal batch").Error())
	}
	if _, err := s.client.Do(ctx, params, client.NewRequest(http.MethodPost, "batch", params.Database).WithBody(body)); err != nil {
		return failure(err)
	}
	return result.OK()
}
