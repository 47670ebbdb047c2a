package model

// Операции журнала файлового хранилища.
const (
	EntryPut    = "put"
	EntryDelete = "delete"
	EntryClick  = "click" // +1 к clicks, без тела ссылки
)

// Entry представляет одну строку журнала в файле: состояние ссылки после
// изменения, её удаление или один переход.
type Entry struct {
	Op   string `json:"op"`
	ID   string `json:"id"`
	Link *Link  `json:"link,omitempty"`
}
