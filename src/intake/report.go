package intake

import (
	"context"
	"time"

	apperrors "birdrescue-server-go/src/core/errors"

	"github.com/oklog/ulid/v2"
)

// Report 提交的救助报告。报告只写日志，不做持久化。
type Report struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	Draft       Draft     `json:"draft"`
	Bird        *BirdInfo `json:"bird,omitempty"`
}

// Submit 校验并提交当前草稿。校验失败不会发出任何网络请求，草稿保持不变；成功后清空草稿。
func (s *Service) Submit(ctx context.Context, sessionID string) (*Report, FormState, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, FormState{}, err
	}

	var report *Report
	state, errs, err := sess.form.submit(ctx, func(d Draft) {
		report = &Report{
			ID:          ulid.Make().String(),
			SubmittedAt: s.now().UTC(),
			Draft:       d,
			Bird:        sess.flow.Result(),
		}

		species := ""
		if report.Bird != nil {
			species = report.Bird.Species
		}
		// 联系方式不写日志
		s.logger.WithTag("report").Info("收到救助报告", map[string]interface{}{
			"report_id":   report.ID,
			"condition":   report.Draft.Condition,
			"location":    report.Draft.Location,
			"time_found":  report.Draft.TimeFound,
			"description": report.Draft.Description,
			"species":     species,
		})
	})
	if len(errs) > 0 {
		fields := make(map[string]string, len(errs))
		for field, msg := range errs {
			fields[string(field)] = msg
		}
		return nil, state, apperrors.NewFieldValidation(fields)
	}
	if err != nil {
		// 报告已记录，草稿清理失败只影响下次打开表单
		s.logger.Warn("提交后清空草稿失败", map[string]interface{}{"report_id": report.ID, "error": err.Error()})
	}
	return report, state, nil
}
