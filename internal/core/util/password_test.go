package util_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/core/util"
)

func TestPasswordHasher_HashAndMatch(t *testing.T) {
	RegisterTestingT(t)
	h := util.NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	Expect(err).To(BeNil())
	Expect(hash).NotTo(Equal("correct horse"))

	ok, err := h.Matches("correct horse", hash)
	Expect(err).To(BeNil())
	Expect(ok).To(BeTrue())

	ok, err = h.Matches("wrong horse", hash)
	Expect(err).To(BeNil())
	Expect(ok).To(BeFalse())
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := util.NewPasswordHasher(bcrypt.MinCost)

	ok, err := h.Matches("password", "not-a-bcrypt-hash")

	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	h := util.NewPasswordHasher(99)

	hash, err := h.Hash("password123")
	assert.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
