package types

import "testing"

func TestRecordCombinedText(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "title and abstract",
			record: Record{Title: "Test Title", Abstract: "Test Abstract"},
			want:   "Title: Test Title\n\nAbstract: Test Abstract",
		},
		{
			name:   "title only",
			record: Record{Title: "Test Title"},
			want:   "Title: Test Title",
		},
		{
			name:   "abstract only",
			record: Record{Abstract: "Test Abstract"},
			want:   "Abstract: Test Abstract",
		},
		{
			name:   "neither",
			record: Record{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.CombinedText(); got != tt.want {
				t.Errorf("CombinedText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordMetadataValue(t *testing.T) {
	r := Record{
		Metadata: []Field{
			{Key: "authors", Value: "Smith, J."},
			{Key: "year", Value: "2023"},
		},
	}
	if got := r.MetadataValue("year"); got != "2023" {
		t.Errorf("MetadataValue(year) = %q, want %q", got, "2023")
	}
	if got := r.MetadataValue("doi"); got != "" {
		t.Errorf("MetadataValue(doi) = %q, want empty", got)
	}
}
