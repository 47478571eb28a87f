package conc

// Future 是一次异步任务的结果。
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan struct{})}
}

// Await 阻塞直到任务完成，返回结果与错误。
func (future *Future[T]) Await() (T, error) {
	<-future.ch
	return future.value, future.err
}

// Done 返回任务完成时关闭的 channel。
func (future *Future[T]) Done() <-chan struct{} {
	return future.ch
}

// Value 阻塞直到任务完成并返回结果。
func (future *Future[T]) Value() T {
	<-future.ch
	return future.value
}

// Err 阻塞直到任务完成并返回错误。
func (future *Future[T]) Err() error {
	<-future.ch
	return future.err
}

// AwaitAll 等待全部任务完成，返回按提交顺序排列的全部错误（成功为 nil）。
func AwaitAll[T any](futures ...*Future[T]) []error {
	errs := make([]error, len(futures))
	for i, future := range futures {
		errs[i] = future.Err()
	}
	return errs
}
