package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Quizbank" {
		t.Errorf("T(AppTitle) = %q, want 'Quizbank'", got)
	}

	got = T(ctx, "VerdictCorrect")
	if got != "Correct" {
		t.Errorf("T(VerdictCorrect) = %q, want 'Correct'", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	got := T(ctx, "AppTitle")
	if got != "全题库考试系统" {
		t.Errorf("T(AppTitle) = %q, want '全题库考试系统'", got)
	}

	got = T(ctx, "VerdictCorrect")
	if got != "正确" {
		t.Errorf("T(VerdictCorrect) = %q, want '正确'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAvailable", 1)
	if got1 != "1 question available." {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q, want '1 question available.'", got1)
	}

	got5 := Tp(ctx, "QuestionsAvailable", 5)
	if got5 != "5 questions available." {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q, want '5 questions available.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ScoreLine", map[string]any{"Correct": 2, "Total": 3})
	if got != "Objective score: 2 / 3" {
		t.Errorf("Td(ScoreLine) = %q, want 'Objective score: 2 / 3'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
