package engine

import "fmt"

// ExecError 是执行引擎对外的统一失败类型；内部任何故障都先
// 转成带描述的 ExecError 再返回，调用方永远能拿到结构化结果。
type ExecError struct {
	Msg string
	Err error
}

func (e *ExecError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

func execErr(msg string, err error) *ExecError {
	return &ExecError{Msg: msg, Err: err}
}
