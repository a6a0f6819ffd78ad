// Package ordernumber は注文番号 ORD-{YYYYMMDD}-{イニシャル2文字}{ランダム2文字}-{連番4桁} を扱う。
package ordernumber

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Prefix = "ORD"

	// 日付のフォーマット（YYYYMMDD）
	DayLayout = "20060102"

	// イニシャルが足りないときの埋め文字
	PadChar = 'X'

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// 末尾の "-dddd" を拾う
var sequencePattern = regexp.MustCompile(`-(\d{4,})$`)

var numberPattern = regexp.MustCompile(`^ORD-(\d{8})-([A-Z0-9]{2})([A-Z0-9]{2})-(\d{4,})$`)

// UTCの日付キー（YYYYMMDD）
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// その日の注文番号の先頭部分
func DayPrefix(day string) string {
	return Prefix + "-" + day
}

// ユーザー名の先頭2文字を大文字にする。
// 英数字以外と足りない分は X にする。
func Initials(username string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(username) {
		if b.Len() == 2 {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(PadChar)
		}
	}
	for b.Len() < 2 {
		b.WriteRune(PadChar)
	}
	return b.String()
}

// 英大文字+数字のランダム文字列
func RandomSuffix(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("n must be positive")
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

func Format(day, initials, suffix string, seq int64) string {
	return fmt.Sprintf("%s-%s%s-%04d", DayPrefix(day), initials, suffix, seq)
}

// 末尾の連番を取り出す（形式が違えば false）
func ParseSequence(number string) (int64, bool) {
	m := sequencePattern.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// 既存番号の連番の最大値（無ければ0）
func MaxSequence(numbers []string) int64 {
	var max int64
	for _, n := range numbers {
		if seq, ok := ParseSequence(n); ok && seq > max {
			max = seq
		}
	}
	return max
}

// 番号全体の形式チェック
func Valid(number string) bool {
	return numberPattern.MatchString(number)
}
