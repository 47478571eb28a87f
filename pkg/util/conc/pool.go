// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"github.com/cockroachdb/errors"
	ants "github.com/panjf2000/ants/v2"
)

// Pool 是基于 ants 的有界协程池，提交的任务以 Future 返回结果。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建容量为 cap 的协程池，cap <= 0 时不限制容量。
func NewPool[T any](cap int, opts ...PoolOption) (*Pool[T], error) {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}
	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "create conc pool")
	}
	return &Pool[T]{inner: pool, opt: opt}, nil
}

// Submit 提交任务。池已满且为非阻塞模式时，返回的 Future 立即带错完成。
// 任务 panic 时 Future 以错误完成，panic 继续交给池的 panic 处理。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				future.err = errors.Newf("conc pool task panicked: %v", p)
				close(future.ch)
				panic(p)
			}
		}()
		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		res, err := method()
		future.value, future.err = res, err
		close(future.ch)
	})
	if err != nil {
		future.err = errors.Wrap(err, "submit to conc pool")
		close(future.ch)
	}
	return future
}

// Cap 返回池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running 返回正在执行的任务数。
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Release 释放池，已提交的任务继续执行完。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}
