package charclass

import "testing"

func TestSetBasics(t *testing.T) {
	var s Set
	if !s.IsEmpty() || s.First() != -1 {
		t.Fatal("zero Set should be empty")
	}
	s.Set('a')
	s.Set(0)
	s.Set(255)
	if !s.Test('a') || !s.Test(0) || !s.Test(255) || s.Test('b') {
		t.Error("Test disagrees with Set")
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
	got := s.Bytes()
	want := []byte{0, 'a', 255}
	if string(got) != string(want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
	s.Clear('a')
	if s.Test('a') {
		t.Error("Clear did not remove")
	}
}

func TestSetAlgebra(t *testing.T) {
	digits := Range('0', '9')
	lower := Range('a', 'z')
	word := digits.Union(lower)
	if !digits.IsSubsetOf(word) || word.IsSubsetOf(digits) {
		t.Error("subset relation wrong")
	}
	if digits.Overlaps(lower) {
		t.Error("digits and letters should not overlap")
	}
	if got := word.Subtract(digits); got != lower {
		t.Errorf("Subtract = %v, want %v", got, lower)
	}
	if got := word.Intersect(digits); got != digits {
		t.Errorf("Intersect = %v", got)
	}
	if got := digits.Negate().Count(); got != 246 {
		t.Errorf("Negate count = %d, want 246", got)
	}
	if !All().IsAll() || All().Count() != 256 {
		t.Error("All() broken")
	}
}

func TestLiteralDetection(t *testing.T) {
	tests := []struct {
		name   string
		set    Set
		b      byte
		nocase bool
		ok     bool
	}{
		{"single", Of('x'), 'x', false, true},
		{"caseless", Of('Q', 'q'), 'q', true, true},
		{"non letter pair", Of('1', 'Q'), 0, false, false},
		{"wrong pair", Of('A', 'b'), 0, false, false},
		{"class", Range('a', 'c'), 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, nocase, ok := tt.set.Literal()
			if ok != tt.ok || (ok && (b != tt.b || nocase != tt.nocase)) {
				t.Errorf("Literal() = (%q, %v, %v), want (%q, %v, %v)", b, nocase, ok, tt.b, tt.nocase, tt.ok)
			}
		})
	}
}

func TestAddCaseless(t *testing.T) {
	s := Of('a', 'Z', '1')
	s.AddCaseless()
	want := Of('a', 'A', 'z', 'Z', '1')
	if s != want {
		t.Errorf("AddCaseless = %v, want %v", s, want)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		set  Set
		want string
	}{
		{Range('a', 'f'), "[a-f]"},
		{Of('a', 'b'), "[ab]"},
		{Of('\n'), "[\\x0a]"},
		{All(), "[\\x00-\\xff]"},
	}
	for _, tt := range tests {
		if got := tt.set.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestByteClasses(t *testing.T) {
	var b Builder
	b.Add(Range('a', 'z'))
	b.Add(Range('0', '9'))
	b.Add(Of('e'))
	bc := b.Build()
	// Classes: everything else, digits, a-d+f-z, e.
	if bc.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", bc.Len())
	}
	if bc.Get('a') != bc.Get('z') || bc.Get('a') == bc.Get('e') {
		t.Error("letter classes wrong")
	}
	if bc.Get('0') != bc.Get('9') || bc.Get('0') == bc.Get('a') {
		t.Error("digit class wrong")
	}
	if bc.Get(0) != bc.Get(255) {
		t.Error("outside bytes should share a class")
	}
	reps := bc.Representatives()
	for c, r := range reps {
		if int(bc.Get(r)) != c {
			t.Errorf("representative %q maps to %d, want %d", r, bc.Get(r), c)
		}
	}
	round := FromTable(bc.Table())
	if round.Len() != bc.Len() || round.Get('e') != bc.Get('e') {
		t.Error("FromTable round trip failed")
	}
}
