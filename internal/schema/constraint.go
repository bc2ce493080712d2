package schema

import (
	"strings"
	"unicode"
)

// KeyConstraint is a parsed primary-key or foreign-key definition.
type KeyConstraint interface {
	keyConstraint()
}

// PrimaryKey lists the columns of a PRIMARY KEY definition in order.
type PrimaryKey struct {
	Columns []string
}

// ForeignKey is a single-column FOREIGN KEY ... REFERENCES definition.
type ForeignKey struct {
	LocalColumn      string
	ReferencedTable  TableRef
	ReferencedColumn string
}

func (PrimaryKey) keyConstraint() {}
func (ForeignKey) keyConstraint() {}

// ParseConstraint reads a constraint definition such as
//
//	PRIMARY KEY (`artist_id`)
//	FOREIGN KEY (`source_artist_id`) REFERENCES `main`.`default`.`artist` (`artist_id`)
//
// Identifiers may be backtick-quoted, double-quoted or bare, and keywords are
// case-insensitive. Anything after the closing parenthesis of the key list
// (or of the referenced column list) is ignored, so options such as
// NOT ENFORCED or RELY do not affect the result.
func ParseConstraint(def string) (KeyConstraint, error) {
	s := &scanner{src: def}
	s.skipSpace()
	switch {
	case s.keyword("PRIMARY"):
		if !s.keyword("KEY") {
			return nil, s.fail("expected KEY after PRIMARY")
		}
		cols, err := s.identList()
		if err != nil {
			return nil, err
		}
		return PrimaryKey{Columns: cols}, nil

	case s.keyword("FOREIGN"):
		if !s.keyword("KEY") {
			return nil, s.fail("expected KEY after FOREIGN")
		}
		local, err := s.identList()
		if err != nil {
			return nil, err
		}
		if !s.keyword("REFERENCES") {
			return nil, s.fail("expected REFERENCES")
		}
		parts, err := s.qualifiedName()
		if err != nil {
			return nil, err
		}
		ref, err := s.identList()
		if err != nil {
			return nil, err
		}
		if len(local) != 1 || len(ref) != 1 {
			return nil, s.fail("composite foreign keys are not supported")
		}
		return ForeignKey{
			LocalColumn:      local[0],
			ReferencedTable:  tableRefFromParts(parts),
			ReferencedColumn: ref[0],
		}, nil
	}
	return nil, s.fail("expected PRIMARY KEY or FOREIGN KEY")
}

func tableRefFromParts(parts []string) TableRef {
	switch len(parts) {
	case 1:
		return TableRef{Name: parts[0]}
	case 2:
		return TableRef{Schema: parts[0], Name: parts[1]}
	default:
		return TableRef{Catalog: parts[0], Schema: parts[1], Name: parts[2]}
	}
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) fail(msg string) error {
	return &ConstraintSyntaxError{Definition: s.src, Offset: s.pos, Msg: msg}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

// keyword consumes kw (case-insensitive) when it appears as a whole word.
func (s *scanner) keyword(kw string) bool {
	s.skipSpace()
	end := s.pos + len(kw)
	if end > len(s.src) || !strings.EqualFold(s.src[s.pos:end], kw) {
		return false
	}
	if end < len(s.src) && isBareIdentByte(s.src[end]) {
		return false
	}
	s.pos = end
	s.skipSpace()
	return true
}

func (s *scanner) expect(c byte) error {
	s.skipSpace()
	if s.peek() != c {
		return s.fail("expected '" + string(c) + "'")
	}
	s.pos++
	s.skipSpace()
	return nil
}

// identList reads "(" ident {"," ident} ")".
func (s *scanner) identList() ([]string, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var out []string
	for {
		id, err := s.ident()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
		s.skipSpace()
		if s.peek() == ',' {
			s.pos++
			s.skipSpace()
			continue
		}
		break
	}
	if err := s.expect(')'); err != nil {
		return nil, err
	}
	return out, nil
}

// qualifiedName reads one to three dot-separated identifiers.
func (s *scanner) qualifiedName() ([]string, error) {
	var parts []string
	for {
		id, err := s.ident()
		if err != nil {
			return nil, err
		}
		parts = append(parts, id)
		if s.peek() != '.' {
			break
		}
		s.pos++
	}
	if len(parts) > 3 {
		return nil, s.fail("table name has more than three parts")
	}
	s.skipSpace()
	return parts, nil
}

func (s *scanner) ident() (string, error) {
	s.skipSpace()
	switch q := s.peek(); q {
	case '`', '"':
		return s.quoted(q)
	case 0:
		return "", s.fail("unexpected end of definition")
	}
	start := s.pos
	for s.pos < len(s.src) && isBareIdentByte(s.src[s.pos]) {
		s.pos++
	}
	if start == s.pos {
		return "", s.fail("expected identifier")
	}
	return s.src[start:s.pos], nil
}

// quoted reads an identifier wrapped in q, where a doubled q is a literal q.
func (s *scanner) quoted(q byte) (string, error) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == q {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == q {
				b.WriteByte(q)
				s.pos += 2
				continue
			}
			s.pos++
			if b.Len() == 0 {
				s.pos = start
				return "", s.fail("empty quoted identifier")
			}
			return b.String(), nil
		}
		b.WriteByte(c)
		s.pos++
	}
	s.pos = start
	return "", s.fail("unterminated quoted identifier")
}

func isBareIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
