package textutil

import (
	"reflect"
	"testing"
)

func TestToASCII(t *testing.T) {
	cases := map[string]string{
		"Nguyễn Văn An":  "Nguyen Van An",
		"Đặng Thị Hồng":  "Dang Thi Hong",
		"plain":          "plain",
		"Hoa trưng bày":  "Hoa trung bay",
		"":               "",
		"Phạm  Quốc   Ý": "Pham  Quoc   Y",
	}
	for in, want := range cases {
		if got := ToASCII(in); got != want {
			t.Fatalf("ToASCII(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWordsAndCapitalize(t *testing.T) {
	if got := Words("  tran \t thi  mai "); !reflect.DeepEqual(got, []string{"tran", "thi", "mai"}) {
		t.Fatalf("unexpected words %#v", got)
	}
	if got := Capitalize("aN"); got != "An" {
		t.Fatalf("expected An got %q", got)
	}
	if got := Capitalize(""); got != "" {
		t.Fatalf("expected empty got %q", got)
	}
}
