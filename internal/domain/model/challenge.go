package model

import (
	"strconv"
	"time"
)

// Lang is a language code used by the localized challenge names.
type Lang string

// Languages the backend publishes challenge names in.
const (
	LangEnglish            Lang = "en"
	LangSpanish            Lang = "es"
	LangFrench             Lang = "fr"
	LangGerman             Lang = "de"
	LangItalian            Lang = "it"
	LangJapanese           Lang = "jp"
	LangArabic             Lang = "ar"
	LangChineseSimplified  Lang = "zh-CN"
	LangChineseTraditional Lang = "zh-TW"
	LangDutch              Lang = "nl"
	LangKorean             Lang = "ko"
	LangPortuguese         Lang = "pt"
	LangRussian            Lang = "ru"
	LangTurkish            Lang = "tr"
)

// UnknownName is returned when a bucket has no name for a language.
const UnknownName = "Unknown"

// Challenge is the weekly challenge descriptor (the CHALLENGE_DATA row).
type Challenge struct {
	ObjectID  string    `json:"objectId"`
	LevelID   string    `json:"LevelID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Buckets   Buckets   `json:"-"`
}

// Buckets holds the current and previous weekly challenge.
type Buckets struct {
	Current  Bucket `json:"current"`
	Previous Bucket `json:"previous"`
	SheetID  int    `json:"sheetID"`
	CurID    int    `json:"curID"`
	Level    string `json:"level"`
}

// Bucket is one weekly challenge period. It is identified by EndDate.
type Bucket struct {
	// ChapterSet prefixes the positional level ids of the week.
	ChapterSet  string            `json:"chapterSet"`
	ChallengeID string            `json:"challengeID"`
	Levels      []ChallengeLevel  `json:"levels"`
	Names       map[string]string `json:"name"`
	StartDate   time.Time         `json:"startDate"`
	EndDate     time.Time         `json:"endDate"`
}

// Name returns the localized challenge name or UnknownName.
func (b Bucket) Name(lang Lang) string {
	if name, ok := b.Names[string(lang)]; ok {
		return name
	}
	return UnknownName
}

// TransientID is the backend lookup id of the level at ordinal i. Weekly
// levels are addressed positionally; the id never leaves the backend client.
func (b Bucket) TransientID(i int) string {
	return b.ChapterSet + strconv.Itoa(i)
}

// ChallengeLevel is a level of a weekly challenge and its physics modifiers.
type ChallengeLevel struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	Modifiers Modifiers `json:"physicsmod"`
}
