package types

// StateStatus tags a State value.
type StateStatus string

const (
	StateLoading StateStatus = "loading"
	StateSuccess StateStatus = "success"
	StateError   StateStatus = "error"
)

// State is the per-collection load state: Loading, Success(data) or Error(reason).
// One State exists for every independently fetched collection so that a failure in
// one does not hide the others.
type State[T any] struct {
	Status  StateStatus `json:"status"`
	Data    T           `json:"data"`
	Message string      `json:"error,omitempty"`
	Err     error       `json:"-"`
}

func Loading[T any]() State[T] {
	return State[T]{Status: StateLoading}
}

func Success[T any](data T) State[T] {
	return State[T]{Status: StateSuccess, Data: data}
}

func Failure[T any](err error) State[T] {
	s := State[T]{Status: StateError, Err: err}
	if err != nil {
		s.Message = err.Error()
	}
	return s
}

func (s State[T]) IsSuccess() bool { return s.Status == StateSuccess }

// MapState converts the data of a successful state and carries the other states over.
func MapState[T, U any](s State[T], f func(T) U) State[U] {
	switch s.Status {
	case StateSuccess:
		return Success(f(s.Data))
	case StateError:
		return Failure[U](s.Err)
	default:
		return Loading[U]()
	}
}
