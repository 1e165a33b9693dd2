package domain

// Role type to distinguish between user roles carried in the auth token.
type Role string

// Define constants for roles
const (
	RoleAthlete  Role = "athlete"
	RoleAssessor Role = "assessor"
)
