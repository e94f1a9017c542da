package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.Codes(), 21)
	assert.Equal(t, "en", c.Default)
	assert.True(t, c.IsSupported("pa"))
	assert.False(t, c.IsSupported("xx"))
	assert.Equal(t, "Spanish", c.Name("es"))
	assert.Equal(t, "xx", c.Name("xx"))

	l, ok := c.Lookup("ja")
	require.True(t, ok)
	assert.Equal(t, "jpn_Jpan", l.NLLB)
}

func TestCatalog_Normalize(t *testing.T) {
	c := DefaultCatalog()

	tests := map[string]string{
		"EN":    "en",
		"en-US": "en",
		"pt_BR": "pt",
		"cmn":   "zh",
		"ukr":   "ru",
		"cat":   "es",
		" fr ":  "fr",
	}
	for in, want := range tests {
		got, ok := c.Normalize(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := c.Normalize("tlh")
	assert.False(t, ok)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	_, err := LoadCatalog([]byte("default: en\nlanguages: []\n"))
	assert.Error(t, err)

	_, err = LoadCatalog([]byte("default: de\nlanguages:\n  - code: en\n"))
	assert.Error(t, err)

	_, err = LoadCatalog([]byte("default: en\nlanguages:\n  - code: eng\n"))
	assert.Error(t, err)
}

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(DefaultCatalog(), "en")

	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "The tenant must pay the rent on the first day of every month and keep the property in good condition.", "en"},
		{"spanish", "El inquilino debe pagar el alquiler el primer día de cada mes y mantener la propiedad en buenas condiciones.", "es"},
		{"russian", "Арендатор обязан вносить арендную плату в первый день каждого месяца и содержать имущество в хорошем состоянии.", "ru"},
		{"japanese", "借主は毎月一日に家賃を支払い、物件を良好な状態に保たなければなりません。", "ja"},
		{"korean", "임차인은 매월 첫날에 임대료를 지불하고 재산을 양호한 상태로 유지해야 합니다.", "ko"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text))
		})
	}
}

func TestDetector_ShortInputFallsBack(t *testing.T) {
	d := NewDetector(DefaultCatalog(), "en")

	assert.Equal(t, "en", d.Detect("Hola"))
	assert.Equal(t, "en", d.Detect("   "))
	assert.Equal(t, "es", d.DetectWithHint("¿Qué es X?", "es"))
	assert.Equal(t, "en", d.DetectWithHint("¿Qué es X?", "zz"))
}

func TestDetector_AliasMapsToClosest(t *testing.T) {
	d := NewDetector(DefaultCatalog(), "en")

	ukrainian := "Орендар зобов'язаний сплачувати орендну плату в перший день кожного місяця та утримувати майно в належному стані."
	assert.Equal(t, "ru", d.Detect(ukrainian))
}

func TestNewDetector_UnsupportedFallback(t *testing.T) {
	d := NewDetector(DefaultCatalog(), "xx")
	assert.Equal(t, "en", d.Detect("short"))
}
