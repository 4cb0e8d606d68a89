package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User представляет пользователя в системе
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password    string    `gorm:"size:100;not null" json:"-"`
	FirstName   string    `gorm:"size:100;not null;default:''" json:"first_name"`
	LastName    string    `gorm:"size:100;not null;default:''" json:"last_name"`
	Company     string    `gorm:"size:255;not null;default:''" json:"company"`
	IsActivated bool      `gorm:"not null;default:false" json:"is_activated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// DisplayName возвращает имя для писем: "Имя Фамилия" или email
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// SetPassword хеширует открытый пароль и сохраняет хеш в Password.
// Любая строка считается открытым паролем, в том числе похожая на bcrypt-хеш.
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
