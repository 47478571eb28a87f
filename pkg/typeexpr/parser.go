package typeexpr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

// Parse 将类型字符串解析为表达式。
//
// 解析器按嵌套深度匹配尖括号和逗号，因此 Dictionary<Array<V>> 与
// Pair<Array<A>,Dictionary<B>> 都能正确拆分。形如 Array<E> 的单参数数组
// 会被规范化为 ArrayOf，与 E[] 等价。
func Parse(s string) (Expr, error) {
	p := &parser{src: s}
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return e, nil
}

// MustParse 与 Parse 相同，解析失败时 panic，仅用于常量与测试。
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// Canonical 返回 s 的规范形式。
func Canonical(s string) (string, error) {
	e, err := Parse(s)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

// IsIdentifier 判断 s 是否是一个合法的裸名。
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return merr.WrapErrTypeMalformed(p.src, fmt.Sprintf(format, args...))
}

func (p *parser) parseType() (Expr, error) {
	e, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != '|' {
		return e, nil
	}
	p.pos++
	p.skipSpace()
	if kw := p.ident(); kw != nullKeyword {
		return nil, p.errorf("expected %q after '|' at offset %d", nullKeyword, p.pos)
	}
	return Nullable(e), nil
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.peek() != '[' {
			return e, nil
		}
		p.pos++
		p.skipSpace()
		if p.peek() != ']' {
			return nil, p.errorf("unbalanced '[' at offset %d", p.pos)
		}
		p.pos++
		e = ArrayOf{Elem: e}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	p.skipSpace()
	start := p.pos
	name := p.ident()
	if name == "" {
		if p.eof() {
			return nil, p.errorf("empty base name at offset %d", start)
		}
		return nil, p.errorf("empty base name before %q at offset %d", p.src[p.pos], start)
	}
	p.skipSpace()
	if p.peek() != '<' {
		return Named{Name: name}, nil
	}
	p.pos++

	var args []Expr
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			if name == ArrayBase && len(args) == 1 {
				return ArrayOf{Elem: args[0]}, nil
			}
			return Named{Name: name, Args: args}, nil
		case 0:
			return nil, p.errorf("unbalanced '<' opened by %s", name)
		default:
			return nil, p.errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
		}
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r := rune(p.src[p.pos])
		if r >= 0x80 {
			// 非 ASCII 名称按 UTF-8 整体读取。
			var size int
			r, size = utf8.DecodeRuneInString(p.src[p.pos:])
			if !isIdentRune(r) {
				break
			}
			p.pos += size
			continue
		}
		if !isIdentRune(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentRune(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return !strings.ContainsRune("<>,[]|", r)
}
