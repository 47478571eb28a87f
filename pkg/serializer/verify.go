package serializer

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

// maxVerifyDepth 限制 Verify 沿字段展开的深度。Nested<T> 含有 Nested<T[]>
// 这类字段时展开没有尽头，到达上限后停止展开，不视为错误。
const maxVerifyDepth = 64

// Verify 立即解析 typeStrings 以及从它们可达的全部类字段类型，
// 返回所有解析失败合并后的错误。类字段平时在第一次使用时才解析，
// 启动时调用 Verify 可以提前发现缺失的注册。Verify 会冻结注册表。
func (r *Registry) Verify(typeStrings ...string) error {
	r.Freeze()
	v := &verifier{r: r, seen: make(map[string]struct{})}
	for _, s := range typeStrings {
		e, err := typeexpr.Parse(s)
		if err != nil {
			v.errs = append(v.errs, err)
			continue
		}
		v.visit(e, 0)
	}
	return merr.Combine(v.errs...)
}

type verifier struct {
	r    *Registry
	seen map[string]struct{}
	errs []error
}

func (v *verifier) visit(e typeexpr.Expr, depth int) {
	key := e.String()
	if _, ok := v.seen[key]; ok {
		return
	}
	v.seen[key] = struct{}{}
	if depth > maxVerifyDepth {
		v.r.Logger().Debug("verify depth limit reached, stop descending",
			log.FieldType(key), zap.Int("depth", depth))
		return
	}

	s, err := v.r.resolve(e)
	if err != nil {
		v.errs = append(v.errs, err)
		return
	}

	switch e := e.(type) {
	case typeexpr.NullableOf:
		v.visit(e.Inner, depth+1)
	case typeexpr.ArrayOf:
		v.visit(e.Elem, depth+1)
	case typeexpr.Named:
		for _, arg := range e.Args {
			v.visit(arg, depth+1)
		}
	}

	if c, ok := s.(*class); ok {
		for i, ft := range c.fieldTypes() {
			before := len(v.errs)
			v.visit(ft, depth+1)
			for j := before; j < len(v.errs); j++ {
				v.errs[j] = errors.Wrapf(v.errs[j], "field %s of %s", c.fields[i].name, key)
			}
		}
	}
}
