package serializer

import (
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
)

func mustExpr(s string) typeexpr.Expr {
	return typeexpr.MustParse(s)
}
