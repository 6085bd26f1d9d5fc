package uuid

import guuid "github.com/google/uuid"

// RandomGenerator RFC 4122 v4 generator, used for short lived session ids
type RandomGenerator struct{}

var _ Generator = RandomGenerator{}

// Generate implements Generator
func (RandomGenerator) Generate() (string, error) {
	id, err := guuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
