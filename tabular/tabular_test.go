package tabular

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim rune
		want  [][]string
	}{
		{
			name:  "plain rows",
			input: "a,b,c\nd,e,f\n",
			delim: ',',
			want:  [][]string{{"a", "b", "c"}, {"d", "e", "f"}},
		},
		{
			name:  "quoted delimiter",
			input: "a,\"b,c\",d\n",
			delim: ',',
			want:  [][]string{{"a", "b,c", "d"}},
		},
		{
			name:  "quoted newline",
			input: "a,\"line one\nline two\",c\n",
			delim: ',',
			want:  [][]string{{"a", "line one\nline two", "c"}},
		},
		{
			name:  "doubled quotes",
			input: "a,\"he said \"\"hi\"\"\",c\n",
			delim: ',',
			want:  [][]string{{"a", `he said "hi"`, "c"}},
		},
		{
			name:  "carriage returns stripped",
			input: "a,b\r\nc,d\r\n",
			delim: ',',
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "quoted crlf folds to newline",
			input: "a,\"line one\r\nline two\",c\r\n",
			delim: ',',
			want:  [][]string{{"a", "line one\nline two", "c"}},
		},
		{
			name:  "lone quoted carriage return kept",
			input: "a,\"x\ry\",c\n",
			delim: ',',
			want:  [][]string{{"a", "x\ry", "c"}},
		},
		{
			name:  "unterminated final row",
			input: "a,b\nc,d",
			delim: ',',
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "semicolon delimiter",
			input: "a;b;c\n",
			delim: ';',
			want:  [][]string{{"a", "b", "c"}},
		},
		{
			name:  "empty input",
			input: "",
			delim: ',',
			want:  nil,
		},
		{
			name:  "empty trailing field",
			input: "a,b,\n",
			delim: ',',
			want:  [][]string{{"a", "b", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input, tt.delim)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSerializeQuoting(t *testing.T) {
	rows := [][]string{{"plain", "with,comma", `with "quote"`, "with\nnewline"}}
	got := Serialize(rows)
	want := "plain,\"with,comma\",\"with \"\"quote\"\"\",\"with\nnewline\"\n"
	if got != want {
		t.Fatalf("Serialize() = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	input := "sku,name,note\nA1,\"Widget, large\",\"says \"\"new\"\"\"\nB2,Gadget,plain\n"
	first := Parse(input, ',')
	second := Parse(Serialize(first), ',')
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip mismatch:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{name: "comma", input: "a,b,c\n1,2,3\n", want: ','},
		{name: "semicolon", input: "a;b;c\n", want: ';'},
		{name: "semicolon inside quotes ignored", input: "a,\"x;y;z\",c\n", want: ','},
		{name: "single column defaults to comma", input: "header\nvalue\n", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.input); got != tt.want {
				t.Fatalf("DetectDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromText(t *testing.T) {
	table := FromText("sku;name\nA1;Widget\nB2\n")
	if len(table.Header) != 2 {
		t.Fatalf("header = %v, want 2 columns", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if got := table.Cell(table.Rows[1], 1); got != "" {
		t.Fatalf("short row cell = %q, want empty", got)
	}
	if got := table.ColumnIndex("name"); got != 1 {
		t.Fatalf("ColumnIndex(name) = %d, want 1", got)
	}
	if got := table.ColumnIndex("missing"); got != -1 {
		t.Fatalf("ColumnIndex(missing) = %d, want -1", got)
	}
}
