package domain

// Envelope é o formato selado (nonce + ciphertext) de um TransactionRecord.
type Envelope struct {
	Version    uint32 `json:"version"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// LedgerEntry é o que o ledger devolve no scan: o envelope e seu handle (sequência).
type LedgerEntry struct {
	Seq      uint64
	Envelope Envelope
}
