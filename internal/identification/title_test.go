package identification

import "testing"

func TestNormalizeTitleDropsFillerSeparators(t *testing.T) {
	cases := map[string]string{
		"Vikram-Vedha":        "Vikram Vedha",
		"Ponniyin  Selvan: I": "Ponniyin Selvan I",
		"K.G.F | Chapter_2":   "K G F Chapter 2",
		"  Kaadhal ":          "Kaadhal",
	}
	for input, want := range cases {
		if got := NormalizeTitle(input); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestComparisonKeyFoldsCaseAndDiacritics(t *testing.T) {
	if comparisonKey("Amélie") != comparisonKey("AMELIE") {
		t.Fatalf("expected diacritics and case to be folded: %q vs %q", comparisonKey("Amélie"), comparisonKey("AMELIE"))
	}
	if comparisonKey("Vikram: Vedha") != comparisonKey("vikram vedha") {
		t.Fatal("expected separators to be ignored")
	}
	if comparisonKey("Vaa Vaathiyaar!") != comparisonKey("vaa vaathiyaar") {
		t.Fatal("expected punctuation to be ignored")
	}
	if comparisonKey("Kaathu Vaakula Rendu Kaadhal & ") != comparisonKey("kaathu vaakula rendu kaadhal") {
		t.Fatal("expected symbols to be ignored")
	}
	if comparisonKey("?!") != "" {
		t.Fatal("expected blank key for punctuation-only title")
	}
	if comparisonKey("   ") != "" {
		t.Fatal("expected blank key for blank title")
	}
}
