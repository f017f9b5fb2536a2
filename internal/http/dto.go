package http

import (
	"time"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/render"
)

const synopsisExcerptLength = 200

// AuthorDTO is the public view of a book's author.
type AuthorDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type BookDTO struct {
	ID        uint                `json:"id"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Synopsis  string              `json:"synopsis"`
	Excerpt   string              `json:"excerpt"`
	Genre     string              `json:"genre,omitempty"`
	Status    entities.BookStatus `json:"status"`
	CoverURL  string              `json:"cover_url,omitempty"`
	Views     int64               `json:"views"`
	Author    *AuthorDTO          `json:"author,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// BookDetailDTO adds follow state to a single book.
type BookDetailDTO struct {
	BookDTO
	Followers int64 `json:"followers"`
	Following bool  `json:"following"`
}

type ChapterDTO struct {
	ID          uint       `json:"id"`
	BookID      uint       `json:"book_id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Position    int        `json:"position"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChapterDetailDTO carries the chapter body and its neighbours.
type ChapterDetailDTO struct {
	ChapterDTO
	Content     string      `json:"content"`
	ContentHTML string      `json:"content_html"`
	Prev        *ChapterDTO `json:"prev,omitempty"`
	Next        *ChapterDTO `json:"next,omitempty"`
}

type UserDTO struct {
	ID          uint              `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email,omitempty"`
	Role        entities.UserRole `json:"role"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toBookDTO(b *entities.Book) BookDTO {
	dto := BookDTO{
		ID:        b.ID,
		Slug:      b.URLSlug(),
		Title:     b.Title,
		Synopsis:  b.Synopsis,
		Excerpt:   render.Excerpt(b.Synopsis, synopsisExcerptLength),
		Genre:     b.Genre,
		Status:    b.Status,
		CoverURL:  b.CoverURL,
		Views:     b.Views,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Author.ID != 0 {
		dto.Author = &AuthorDTO{ID: b.Author.ID, Username: b.Author.Username}
	}
	return dto
}

func toBookDTOs(books []entities.Book) []BookDTO {
	out := make([]BookDTO, 0, len(books))
	for i := range books {
		out = append(out, toBookDTO(&books[i]))
	}
	return out
}

func toChapterDTO(ch *entities.Chapter) ChapterDTO {
	return ChapterDTO{
		ID:          ch.ID,
		BookID:      ch.BookID,
		Slug:        ch.URLSlug(),
		Title:       ch.Title,
		Position:    ch.Position,
		Published:   ch.IsPublished(),
		PublishedAt: ch.PublishedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
}

func toChapterDTOs(chapters []entities.Chapter) []ChapterDTO {
	out := make([]ChapterDTO, 0, len(chapters))
	for i := range chapters {
		out = append(out, toChapterDTO(&chapters[i]))
	}
	return out
}

func toUserDTO(u *entities.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
