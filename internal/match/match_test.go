package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/listing-scraper/internal/models"
	"github.com/dealscope/listing-scraper/internal/parse"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"Samsung Galaxy M14 5G (Blue, 128GB)", []string{"samsung", "galaxy", "m14", "blue", "128gb"}},
		{"Samsung Galaxy M14 (Smoky Teal, 128 GB)", []string{"samsung", "galaxy", "m14", "smoky", "teal", "128"}},
		{"iPhone 15 Plus", []string{"iphone", "15", "plus"}},
		{"New Smartphone with 8GB RAM", []string{"8gb"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := Tokens(tt.title)
		if tt.want == nil {
			assert.Empty(t, got, tt.title)
			continue
		}
		assert.Equal(t, tt.want, got, tt.title)
	}
}

func TestTokensDropBareUnitWords(t *testing.T) {
	// "128 GB" and "128GB" should differ by one token, not two.
	spaced := Tokens("Galaxy M14 128 GB")
	fused := Tokens("Galaxy M14 128GB")

	assert.NotContains(t, spaced, "gb")
	assert.Contains(t, fused, "128gb")
	assert.Equal(t, 2.0/3.0, Score(spaced, fused))
}

func TestScoreUsesSmallerSet(t *testing.T) {
	a := Tokens("Samsung Galaxy M14 5G")
	b := Tokens("Samsung Galaxy M14 5G (Smoky Teal, 128 GB) Exclusive")
	assert.Equal(t, 1.0, Score(a, b))
}

func TestScoreDisjointAndEmpty(t *testing.T) {
	assert.Zero(t, Score(Tokens("boAt Airdopes 141"), Tokens("Lenovo IdeaPad Slim 3")))
	assert.Zero(t, Score(nil, Tokens("anything")))
}

func TestPairsMatchesSameProduct(t *testing.T) {
	rows := []models.Row{
		listing(models.PlatformAmazon, "Samsung Galaxy M14 5G (Berry Blue, 128GB)", "Samsung", "https://www.amazon.in/dp/B1"),
		listing(models.PlatformAmazon, "Redmi 13C 5G (Starlight Green)", "Xiaomi", "https://www.amazon.in/dp/B2"),
		listing(models.PlatformFlipkart, "SAMSUNG Galaxy M14 5G (Berry Blue, 128 GB)", "Samsung", "https://www.flipkart.com/a/p/itm1"),
		listing(models.PlatformFlipkart, "POCO C65 (Pastel Blue)", "Poco", "https://www.flipkart.com/b/p/itm2"),
	}

	pairs := New(0).Pairs(rows)
	require.Len(t, pairs, 1)
	assert.Equal(t, "https://www.amazon.in/dp/B1", pairs[0].Amazon.ProductURL)
	assert.Equal(t, "https://www.flipkart.com/a/p/itm1", pairs[0].Flipkart.ProductURL)
	assert.GreaterOrEqual(t, pairs[0].Score, DefaultThreshold)
}

func TestPairsRespectsBrandBuckets(t *testing.T) {
	rows := []models.Row{
		listing(models.PlatformAmazon, "Galaxy A15 5G 128GB", "Samsung", "https://www.amazon.in/dp/B1"),
		listing(models.PlatformFlipkart, "Galaxy A15 5G 128GB", "Motorola", "https://www.flipkart.com/x/p/itm1"),
	}
	assert.Empty(t, New(0).Pairs(rows))
}

func TestPairsOneClaimPerRow(t *testing.T) {
	rows := []models.Row{
		listing(models.PlatformAmazon, "Redmi Note 13 5G 256GB", "Xiaomi", "https://www.amazon.in/dp/B1"),
		listing(models.PlatformAmazon, "Redmi Note 12 5G", "Xiaomi", "https://www.amazon.in/dp/B2"),
		listing(models.PlatformFlipkart, "REDMI Note 13 5G 256GB", "Xiaomi", "https://www.flipkart.com/x/p/itm1"),
	}

	pairs := New(0).Pairs(rows)
	require.Len(t, pairs, 1)
	assert.Equal(t, "https://www.amazon.in/dp/B1", pairs[0].Amazon.ProductURL)
}

func TestPairsFirstClaimWins(t *testing.T) {
	rows := []models.Row{
		listing(models.PlatformAmazon, "Redmi Note 12 256GB", "Xiaomi", "https://www.amazon.in/dp/B1"),
		listing(models.PlatformAmazon, "Redmi Note 13 256GB", "Xiaomi", "https://www.amazon.in/dp/B2"),
		listing(models.PlatformFlipkart, "REDMI Note 13 256GB", "Xiaomi", "https://www.flipkart.com/x/p/itm1"),
	}

	// The first Amazon row claims the Flipkart candidate at 0.75 even
	// though the second would have scored 1.0 on it.
	pairs := New(0).Pairs(rows)
	require.Len(t, pairs, 1)
	assert.Equal(t, "https://www.amazon.in/dp/B1", pairs[0].Amazon.ProductURL)
	assert.InDelta(t, 0.75, pairs[0].Score, 0.001)
}

func TestPairsSkipsRowsWithoutTitles(t *testing.T) {
	noTitle := models.Row{Platform: models.PlatformAmazon, ProductURL: "https://www.amazon.in/dp/B9"}
	rows := []models.Row{
		noTitle,
		listing(models.PlatformFlipkart, "Anything At All", "", "https://www.flipkart.com/y/p/itm9"),
	}
	assert.Empty(t, New(0).Pairs(rows))
}

func listing(p models.Platform, title, brand, url string) models.Row {
	r := models.NewRow(p, "")
	r.ProductName = parse.String(title)
	if brand != "" {
		r.BrandGuess = parse.String(brand)
	}
	r.ProductURL = url
	return r
}
