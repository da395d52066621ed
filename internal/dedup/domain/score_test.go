package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func profile(id uint, first, last string, emails, phones []string, addrs []Address) ContactProfile {
	return ContactProfile{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Emails:    emails,
		Phones:    phones,
		Addresses: addrs,
	}
}

func TestScoreSymmetry(t *testing.T) {
	a := profile(1, "José", "García", []string{"jose@example.com"}, []string{"+1 (555) 123-4567"},
		[]Address{{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62704"}})
	b := profile(2, "Jose", "Garcia", []string{"jgarcia@example.com"}, []string{"5551234567"},
		[]Address{{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62704"}})

	ab := Score(a, b)
	ba := Score(b, a)

	assert.Equal(t, ab.Name, ba.Name)
	assert.Equal(t, ab.Email, ba.Email)
	assert.Equal(t, ab.Phone, ba.Phone)
	assert.Equal(t, ab.Address, ba.Address)
	assert.Equal(t, ab.Confidence, ba.Confidence)
}

func TestScoreBounds(t *testing.T) {
	identical := profile(1, "Jane", "Doe", []string{"jane@x.com"}, []string{"5551234567"},
		[]Address{{Street: "1 Main", City: "Town", State: "TX", Zip: "11111"}})
	empty := profile(2, "", "", nil, nil, nil)

	for _, s := range []ScoreBreakdown{
		Score(identical, identical),
		Score(identical, empty),
		Score(empty, empty),
	} {
		for _, v := range []float64{s.Name, s.Email, s.Phone, s.Address, s.Confidence} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}

	perfect := Score(identical, identical)
	assert.Equal(t, 100.0, perfect.Email)
	assert.Equal(t, 100.0, perfect.Phone)
	assert.Equal(t, 100.0, perfect.Name)
	assert.Equal(t, 100.0, perfect.Address)
	assert.Equal(t, 100.0, perfect.Confidence)
}

func TestNameScoreDiacriticsAndCase(t *testing.T) {
	assert.Equal(t, 100.0, NameScore("José", "García", "jose", "garcia"))
}

func TestNameScoreMissingNames(t *testing.T) {
	// 整侧无名字得 0
	assert.Equal(t, 0.0, NameScore("", "", "Jane", "Doe"))
	assert.Equal(t, 0.0, NameScore("Jane", "Doe", "", ""))

	// 单个分量缺失只贡献 0，不报错
	partial := NameScore("Jane", "", "Jane", "Doe")
	assert.Equal(t, 50.0, partial)
}

func TestEmailScore(t *testing.T) {
	assert.Equal(t, 100.0, EmailScore([]string{"Jane@X.com"}, []string{"jane@x.com"}))
	assert.Equal(t, emailScoreLocalPart, EmailScore([]string{"jane@x.com"}, []string{"jane@y.com"}))
	assert.Equal(t, emailScoreDomain, EmailScore([]string{"jane@x.com"}, []string{"bob@x.com"}))
	assert.Equal(t, 0.0, EmailScore([]string{"jane@x.com"}, []string{"bob@y.com"}))
	assert.Equal(t, 0.0, EmailScore(nil, []string{"jane@x.com"}))
	assert.Equal(t, 0.0, EmailScore([]string{"not-an-email"}, []string{"jane@x.com"}))
}

func TestPhoneScore(t *testing.T) {
	// 尾 7 位命中，容忍国家码与格式
	assert.Equal(t, 100.0, PhoneScore([]string{"+1 (555) 123-4567"}, []string{"555.123.4567"}))
	assert.Equal(t, 100.0, PhoneScore([]string{"15551234567"}, []string{"5551234567"}))
	assert.Equal(t, 0.0, PhoneScore([]string{"5551234567"}, []string{"5559999999"}))
	assert.Equal(t, 0.0, PhoneScore(nil, []string{"5551234567"}))
	// 两边都太短时只比较完全相等
	assert.Equal(t, 100.0, PhoneScore([]string{"12345"}, []string{"1-2-3-4-5"}))
	assert.Equal(t, 0.0, PhoneScore([]string{"12345"}, []string{"12344"}))
}

func TestAddressScoreComponentwise(t *testing.T) {
	a := []Address{{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62704"}}
	full := []Address{{Street: "1 main st", City: "SPRINGFIELD", State: "il", Zip: "62704"}}
	half := []Address{{Street: "2 Oak Ave", City: "Springfield", State: "IL", Zip: "99999"}}

	assert.Equal(t, 100.0, AddressScore(a, full))
	assert.Equal(t, 50.0, AddressScore(a, half))
	assert.Equal(t, 0.0, AddressScore(a, nil))
	// 空组件不算命中
	assert.Equal(t, 0.0, AddressScore([]Address{{}}, []Address{{}}))
}

func TestConfidenceWeights(t *testing.T) {
	a := profile(1, "", "", []string{"jane@x.com"}, nil, nil)
	b := profile(2, "", "", []string{"jane@x.com"}, nil, nil)

	s := Score(a, b)
	assert.InDelta(t, 40.0, s.Confidence, 1e-9) // 仅邮箱满分时权重 0.40
}

func TestHasExactIdentifier(t *testing.T) {
	withEmail := profile(1, "", "", []string{"Jane@X.com"}, nil, nil)
	sameEmail := profile(2, "", "", []string{"jane@x.com"}, nil, nil)
	withPhone := profile(3, "", "", nil, []string{"+1 555 123 4567"}, nil)
	samePhone := profile(4, "", "", nil, []string{"5551234567"}, nil)
	neither := profile(5, "Jane", "Doe", []string{"other@z.com"}, []string{"5550000000"}, nil)

	assert.True(t, HasExactIdentifier(withEmail, sameEmail))
	assert.True(t, HasExactIdentifier(withPhone, samePhone))
	assert.False(t, HasExactIdentifier(withEmail, neither))
	assert.False(t, HasExactIdentifier(withPhone, neither))
}

func TestDuplicateMatchPairNormalization(t *testing.T) {
	m := NewDuplicateMatch("tenant-1", 42, 7, ScoreBreakdown{Confidence: 80})
	assert.Equal(t, uint(7), m.Contact1ID)
	assert.Equal(t, uint(42), m.Contact2ID)
	assert.True(t, m.Contains(7))
	assert.True(t, m.Contains(42))
	assert.Equal(t, uint(42), m.Other(7))
}
