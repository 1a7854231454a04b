package planner

import (
	"fmt"

	"github.com/dukerupert/daywich/internal/model"
)

// User-facing messages.
const (
	MsgEventAdded     = "일정이 추가되었습니다"
	MsgEventUpdated   = "일정이 수정되었습니다"
	MsgEventDeleted   = "일정이 삭제되었습니다"
	MsgEventsLoaded   = "일정 로딩 완료!"
	MsgFetchFailed    = "이벤트 로딩 실패"
	MsgSaveFailed     = "일정 저장 실패"
	MsgDeleteFailed   = "일정 삭제 실패"
	MsgRequiredFields = "필수 정보를 모두 입력해주세요."
	MsgTimeInvalid    = "시간 설정을 확인해주세요."
	MsgRepeatEnd      = "반복 종료일을 확인해주세요."
)

// ValidationError is returned before any store call when the form is
// incomplete or its times are out of order.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError reports events overlapping the one being saved. A Blocking
// conflict (from a drag) can only be cancelled; otherwise the caller may
// retry with SubmitOptions.Force.
type ConflictError struct {
	Overlapping []model.Event
	Blocking    bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("일정 겹침: %d건", len(e.Overlapping))
}

// NetworkError wraps a transport failure talking to the event store.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
