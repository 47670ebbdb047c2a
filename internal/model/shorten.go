package model

// ShortenRequest представляет структуру запроса на сокращение URL.
type ShortenRequest struct {
	OriginalURL string `json:"originalUrl"`
	Note        string `json:"note,omitempty"`
}

// UpdateRequest тело PUT /urls/{code}. Пустые поля не меняются.
type UpdateRequest struct {
	OriginalURL    string `json:"originalUrl,omitempty"`
	ShortURL       string `json:"shortUrl,omitempty"`
	GenerateQRCode bool   `json:"generateQRCode,omitempty"`
}

// LinkResponse — ссылка после создания или обновления и признак
// устаревшего QR-кода.
type LinkResponse struct {
	*Link
	QRStale bool `json:"qrStale,omitempty"`
}

// NoteRequest представляет тело запросов к заметке.
type NoteRequest struct {
	Content string `json:"content"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
