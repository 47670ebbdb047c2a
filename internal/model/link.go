package model

import "time"

// Link представляет короткую ссылку пользователя.
type Link struct {
	ID          string    `json:"_id"`
	OriginalURL string    `json:"originalUrl"`
	ShortURL    string    `json:"shortUrl"`
	UserID      string    `json:"userId"`
	Clicks      int64     `json:"clicks"`
	QRCode      string    `json:"qrCode,omitempty"`
	Note        *Note     `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Note хранит заметку владельца к ссылке. Живёт и удаляется вместе с Link.
type Note struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone возвращает независимую копию, включая заметку.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	c := *l
	if l.Note != nil {
		n := *l.Note
		c.Note = &n
	}
	return &c
}

// LinkPatch описывает частичное обновление: nil-поля не трогаются.
type LinkPatch struct {
	OriginalURL *string
	ShortURL    *string
	QRCode      *string
	Note        *Note
	RemoveNote  bool
}

// Empty сообщает, что патч ничего не меняет.
func (p LinkPatch) Empty() bool {
	return p.OriginalURL == nil && p.ShortURL == nil && p.QRCode == nil && p.Note == nil && !p.RemoveNote
}

// Apply применяет патч к копии ссылки.
func (p LinkPatch) Apply(l *Link) *Link {
	out := l.Clone()
	if p.OriginalURL != nil {
		out.OriginalURL = *p.OriginalURL
	}
	if p.ShortURL != nil {
		out.ShortURL = *p.ShortURL
	}
	if p.QRCode != nil {
		out.QRCode = *p.QRCode
	}
	if p.RemoveNote {
		out.Note = nil
	}
	if p.Note != nil {
		n := *p.Note
		out.Note = &n
	}
	return out
}

// LinkUpdate describes the changes an owner asked for.
type LinkUpdate struct {
	NewOriginalURL *string
	NewCode        *string
	RegenerateQR   bool
}

// UpdateResult — итог обновления. QRStale выставляется, когда ссылка
// сохранена, а QR-код перегенерировать не удалось.
type UpdateResult struct {
	Link    *Link
	QRStale bool
}

// Resolution is the outcome of following a short link.
type Resolution struct {
	RedirectURL string `json:"redirectUrl"`
	Clicks      int64  `json:"clicks"`
}

// ShortenResult — итог создания. Created=false, если у владельца уже была
// ссылка на этот адрес.
type ShortenResult struct {
	Link    *Link
	Created bool
	QRStale bool
}
