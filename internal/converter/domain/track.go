package domain

import "time"

// ConversionRecord 一次成功轉檔的持久化紀錄。建立後不再修改。
type ConversionRecord struct {
	ID         string `bson:"_id" json:"id"`
	Identifier string `bson:"identifier" json:"identifier"`

	Title           string  `bson:"title" json:"title"`
	Author          string  `bson:"author" json:"author"`
	DurationSeconds float64 `bson:"duration_seconds" json:"duration_seconds"`

	// BitrateKbps 由輸出檔案大小與長度推得：floor(size*8/duration/1000)
	BitrateKbps int    `bson:"bitrate_kbps" json:"bitrate_kbps"`
	Ext         string `bson:"ext" json:"ext"`
	FilePath    string `bson:"file_path" json:"file_path"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
