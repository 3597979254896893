package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
)

var ravi = Recipient{Name: "Ravi", StudentMobile: "+91 90000 00002", ParentMobile: "91-91000-00002"}

func TestAbsenceTemplates(t *testing.T) {
	c := NewComposer("Sunrise Academy")
	ctx := Context{Subject: "Maths", Topic: "Fractions"}

	m, err := c.Absence(Student, ravi, ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Hi Ravi, you were absent in Maths class. Topic: Fractions.", m.Text)
	assert.Equal(t, "+91 90000 00002", m.Destination)

	m, err = c.Absence(Guardian, ravi, ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Namaste, Ravi is absent today in Sunrise Academy. Topic missed: Fractions.", m.Text)
	assert.Equal(t, "91-91000-00002", m.Destination)
}

func TestCustomTemplateIsLiteral(t *testing.T) {
	c := NewComposer("Academy")
	m, err := c.Custom(Guardian, Recipient{Name: "A & B %s", ParentMobile: "9100000002"}, "Dear {name}, see {name} at 5pm")
	require.NoError(t, err)
	assert.Equal(t, "Dear A & B %s, see A & B %s at 5pm", m.Text)

	_, err = c.Custom(Guardian, ravi, "Dear parent")
	require.True(t, apperr.Is(err, apperr.Validation))
	assert.Equal(t, "template", apperr.FieldsOf(err)[0].Field)

	m, err = c.Absence(Student, ravi, Context{Subject: "Maths"}, "Hello {name}")
	require.NoError(t, err)
	assert.Equal(t, "Hello Ravi", m.Text)
}

func TestMissingContactIsReported(t *testing.T) {
	c := NewComposer("Academy")
	_, err := c.Absence(Guardian, Recipient{Name: "Asha", StudentMobile: "9000000001", ParentMobile: " - "}, Context{}, "")
	require.True(t, apperr.Is(err, apperr.Validation))
	assert.Equal(t, "destination", apperr.FieldsOf(err)[0].Field)
}

func TestFeePaid(t *testing.T) {
	c := NewComposer("Academy")
	m, err := c.FeePaid(Guardian, ravi, Context{Amount: "1500.00", ReceiptNo: "REC-1", Status: "Complete"}, "")
	require.NoError(t, err)
	assert.Contains(t, m.Text, "1500.00")
	assert.Contains(t, m.Text, "REC-1")
	assert.Contains(t, m.Text, "Ravi")
}

func TestURI(t *testing.T) {
	m := Message{Destination: "+91 90000-00002", Text: "Hi Ravi, topic: a+b & c?"}
	assert.Equal(t, "https://wa.me/919000000002?text=Hi%20Ravi%2C%20topic%3A%20a%2Bb%20%26%20c%3F", m.URI())
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"Student": Student, "guardian": Guardian, " Parents ": Guardian, "parent": Guardian} {
		got, err := ParseRole(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRole("principal")
	assert.True(t, apperr.Is(err, apperr.Validation))
}
