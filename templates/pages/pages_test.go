package pages

import (
	"bytes"
	"context"
	"sacrifice-website/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome_EscapesAndSkipsSoldOut(t *testing.T) {
	var buf bytes.Buffer
	err := Home(HomeData{
		Sacrifices: []models.SacrificeAnimal{
			{ID: "a", No: 1, Time: "<b>08:00</b>", SharePrice: 12000, EmptyShare: 3},
			{ID: "b", No: 2, SharePrice: 12000, EmptyShare: 0},
		},
		Availability: models.Availability{3: 1},
		DeliveryFee:  750,
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "&lt;b&gt;08:00&lt;/b&gt;")
	assert.Contains(t, html, `<tr data-id="a">`)
	assert.NotContains(t, html, `<tr data-id="b">`)
	assert.Contains(t, html, "<strong>3 boş hisse</strong>: 1 hayvan")
	assert.Contains(t, html, "750 TL")
	assert.NotContains(t, html, "g_id_onload")
}

func TestHome_SignInButton(t *testing.T) {
	var buf bytes.Buffer
	err := Home(HomeData{GoogleClientID: `id"x`}).Render(context.Background(), &buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `data-client_id="id&#34;x"`)
}

func TestTracking_ShowsEstimate(t *testing.T) {
	remaining, wait := 3, 900.0
	var buf bytes.Buffer
	err := Tracking(&models.Tracking{
		Version: 42,
		Stages: []models.StageProgress{
			{StageMetric: models.StageMetric{Stage: models.StageSlaughter, CurrentSacrificeNumber: 5}, Remaining: &remaining, EstimatedWaitSec: &wait},
			{StageMetric: models.StageMetric{Stage: models.StageButcher, CurrentSacrificeNumber: 2}},
		},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<h2>Kesim</h2>")
	assert.Contains(t, html, "Sıranıza 3 kurban, yaklaşık 15 dakika")
	assert.Contains(t, html, `data-version="42"`)
}

func TestHome_EscapesAttributes(t *testing.T) {
	var buf bytes.Buffer
	err := Home(HomeData{
		Sacrifices: []models.SacrificeAnimal{{ID: `x"><script>alert(1)</script>`, No: 1, EmptyShare: 1}},
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, `data-id="x&#34;&gt;&lt;script&gt;alert(1)&lt;/script&gt;"`)
}
