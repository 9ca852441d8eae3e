package entity

import (
	"fmt"
	"strings"
)

// Grade は利用者が払うべき注意の度合いを表すA〜Fの評価です。
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
)

// Grades は深刻度の低い順に並んだ全評価です。
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeE, GradeF}

var gradeDescriptions = map[Grade]string{
	GradeA: "Nothing to worry about",
	GradeB: "Reasonable limitations to keep in mind",
	GradeC: "Notable restrictions or inconveniences",
	GradeD: "Major restrictions or risks",
	GradeE: "Extreme caution required",
	GradeF: "Obviously unreasonable terms",
}

// ParseGrade は文字列をGradeに変換します。前後の空白と大文字小文字は無視します。
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := gradeDescriptions[g]; !ok {
		return "", fmt.Errorf("invalid grade %q", s)
	}
	return g, nil
}

// Valid はgがA〜Fのいずれかである場合にtrueを返します。
func (g Grade) Valid() bool {
	_, ok := gradeDescriptions[g]
	return ok
}

// Severity はAを0、Fを5とする深刻度を返します。不正な値は-1です。
func (g Grade) Severity() int {
	for i, v := range Grades {
		if v == g {
			return i
		}
	}
	return -1
}

// Description は評価の説明文を返します。
func (g Grade) Description() string {
	return gradeDescriptions[g]
}

func (g Grade) String() string { return string(g) }
