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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	typewireNamespace   = "typewire"
	serializerSubsystem = "serializer"

	resultLabelName = "result"
	kindLabelName   = "kind"

	// result 标签取值。
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

var (
	// SerializerLookupTotal 按结果统计类型字符串查找次数：命中缓存、新建或失败。
	SerializerLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: typewireNamespace,
			Subsystem: serializerSubsystem,
			Name:      "lookup_total",
			Help:      "number of serializer lookups by result",
		}, []string{resultLabelName})

	SerializerRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: typewireNamespace,
			Subsystem: serializerSubsystem,
			Name:      "registrations_total",
			Help:      "number of serializer registrations by kind",
		}, []string{kindLabelName})

	SerializerResolveErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: typewireNamespace,
			Subsystem: serializerSubsystem,
			Name:      "resolve_errors_total",
			Help:      "number of type resolution failures by error kind",
		}, []string{kindLabelName})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回 Register 设置的 Registerer，未设置时为 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册全部指标，重复调用只有第一次生效。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SerializerLookupTotal)
		r.MustRegister(SerializerRegistrationsTotal)
		r.MustRegister(SerializerResolveErrorsTotal)
		metricRegisterer = r
	})
}
