package version

// Version is the report generator version stamped into every report.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "3.2.1"
