package domain

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	strmetrics "github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
)

// 综合置信度的固定权重
const (
	weightName    = 0.30
	weightEmail   = 0.40
	weightPhone   = 0.20
	weightAddress = 0.10
)

// 邮箱部分匹配得分
const (
	emailScoreExact     = 100.0
	emailScoreLocalPart = 70.0
	emailScoreDomain    = 10.0
)

// phoneSuffixLen 电话尾号匹配位数，容忍国家码与格式差异
const phoneSuffixLen = 7

// ScoreBreakdown 一对联系人的各分项得分与综合置信度，均在 [0,100]
type ScoreBreakdown struct {
	Name       float64 `json:"name"`
	Email      float64 `json:"email"`
	Phone      float64 `json:"phone"`
	Address    float64 `json:"address"`
	Confidence float64 `json:"confidence"`
}

// Address 地址比较用的组件快照
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// ContactProfile 参与打分的联系人快照
type ContactProfile struct {
	ID        uint
	FirstName string
	LastName  string
	Emails    []string
	Phones    []string
	Addresses []Address
}

// ProfileFromContact 从联系人聚合构造打分快照
func ProfileFromContact(c *contactdomain.Contact) ContactProfile {
	p := ContactProfile{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
	for _, e := range c.Emails {
		p.Emails = append(p.Emails, e.Address)
	}
	for _, ph := range c.Phones {
		p.Phones = append(p.Phones, ph.Number)
	}
	for _, loc := range c.Locations {
		p.Addresses = append(p.Addresses, Address{
			Street: loc.Street,
			City:   loc.City,
			State:  loc.State,
			Zip:    loc.Zip,
		})
	}
	return p
}

// Score 计算一对联系人的全部分项与综合置信度。
// 所有得分对参数交换对称，且被夹在 [0,100] 内。
func Score(a, b ContactProfile) ScoreBreakdown {
	s := ScoreBreakdown{
		Name:    NameScore(a.FirstName, a.LastName, b.FirstName, b.LastName),
		Email:   EmailScore(a.Emails, b.Emails),
		Phone:   PhoneScore(a.Phones, b.Phones),
		Address: AddressScore(a.Addresses, b.Addresses),
	}
	s.Confidence = clamp(weightName*s.Name + weightEmail*s.Email + weightPhone*s.Phone + weightAddress*s.Address)
	return s
}

// HasExactIdentifier 两侧是否存在精确命中的主标识（邮箱或电话）
func HasExactIdentifier(a, b ContactProfile) bool {
	for _, ea := range a.Emails {
		for _, eb := range b.Emails {
			if ea != "" && strings.EqualFold(ea, eb) {
				return true
			}
		}
	}
	for _, pa := range a.Phones {
		na := normalizePhone(pa)
		if na == "" {
			continue
		}
		for _, pb := range b.Phones {
			if phonesMatch(na, normalizePhone(pb)) {
				return true
			}
		}
	}
	return false
}

// NameScore 姓名模糊相似度。双方各取 first/last 两个分量，
// 任一侧缺失的分量贡献 0；整侧无名字时得 0。
func NameScore(aFirst, aLast, bFirst, bLast string) float64 {
	af, al := foldString(aFirst), foldString(aLast)
	bf, bl := foldString(bFirst), foldString(bLast)
	if (af == "" && al == "") || (bf == "" && bl == "") {
		return 0
	}

	jw := strmetrics.NewJaroWinkler()
	var total float64
	if af != "" && bf != "" {
		total += strutil.Similarity(af, bf, jw)
	}
	if al != "" && bl != "" {
		total += strutil.Similarity(al, bl, jw)
	}
	return clamp(total / 2 * 100)
}

// EmailScore 邮箱匹配：任一地址大小写不敏感精确相等得满分，
// 否则按共享 local-part 或域名给部分分
func EmailScore(a, b []string) float64 {
	best := 0.0
	for _, ea := range a {
		la, da, ok := splitEmail(ea)
		if !ok {
			continue
		}
		for _, eb := range b {
			lb, db, ok := splitEmail(eb)
			if !ok {
				continue
			}
			switch {
			case la == lb && da == db:
				return emailScoreExact
			case la == lb && best < emailScoreLocalPart:
				best = emailScoreLocalPart
			case da == db && best < emailScoreDomain:
				best = emailScoreDomain
			}
		}
	}
	return clamp(best)
}

// PhoneScore 电话匹配：数字化后完全相等或尾 7 位相等视为命中
func PhoneScore(a, b []string) float64 {
	for _, pa := range a {
		na := normalizePhone(pa)
		if na == "" {
			continue
		}
		for _, pb := range b {
			if phonesMatch(na, normalizePhone(pb)) {
				return 100
			}
		}
	}
	return 0
}

// AddressScore 地址按 street/city/state/zip 四个组件各 25 分，
// 取双方地址组合中的最高分
func AddressScore(a, b []Address) float64 {
	best := 0.0
	for _, aa := range a {
		for _, ab := range b {
			score := 0.0
			if componentEqual(aa.Street, ab.Street) {
				score += 25
			}
			if componentEqual(aa.City, ab.City) {
				score += 25
			}
			if componentEqual(aa.State, ab.State) {
				score += 25
			}
			if componentEqual(aa.Zip, ab.Zip) {
				score += 25
			}
			if score > best {
				best = score
			}
		}
	}
	return clamp(best)
}

func componentEqual(a, b string) bool {
	a, b = foldString(a), foldString(b)
	return a != "" && a == b
}

// foldString 小写化并去除变音符号
func foldString(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func splitEmail(addr string) (local, domain string, ok bool) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	local, domain, ok = strings.Cut(addr, "@")
	if !ok || local == "" || domain == "" {
		return "", "", false
	}
	return local, domain, true
}

// normalizePhone 只保留数字
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func phonesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) >= phoneSuffixLen && len(b) >= phoneSuffixLen {
		return a[len(a)-phoneSuffixLen:] == b[len(b)-phoneSuffixLen:]
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
