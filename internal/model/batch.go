package model

// BatchShortenRequest представляет одну запись в пакетном запросе на сокращение URL.
type BatchShortenRequest struct {
	CorrelationID string `json:"correlation_id"`
	OriginalURL   string `json:"originalUrl"`
}

// BatchShortenResponse представляет одну запись в пакетном ответе.
type BatchShortenResponse struct {
	CorrelationID string `json:"correlation_id"`
	ShortURL      string `json:"shortUrl"`
	Link          *Link  `json:"link"`
}
