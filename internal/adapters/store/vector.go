package store

import "github.com/pgvector/pgvector-go"

// encodeVector adapts a domain embedding slice to the pgvector wire type,
// leaving the column NULL when no embedding has been computed yet.
func encodeVector(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

// decodeVector is the inverse of encodeVector for a scanned column.
func decodeVector(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}
