package domain

import "time"

// Challenge é o estado local de um OTP pendente. O código em si nunca fica aqui:
// quem decide aprovado/negado é o provedor externo.
type Challenge struct {
	Mobile    string    `json:"mobile"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

func (c *Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
