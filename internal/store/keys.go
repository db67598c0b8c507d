// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

// Key layout. Index keys carry no value; the document key is rebuilt from
// the suffix.
//
//	class/<classID>                          Class document
//	teacher_class/<teacherID>/<classID>      index
//	session/<sessionID>                      Session document
//	class_session/<classID>/<sessionID>      index
//	class_guard/<classID>                    write guard for session creation
//	attendance/<sessionID>/<studentID>       AttendanceRecord document
//	student_attendance/<studentID>/<sessionID> index
const (
	prefixClass             = "class/"
	prefixTeacherClass      = "teacher_class/"
	prefixSession           = "session/"
	prefixClassSession      = "class_session/"
	prefixClassGuard        = "class_guard/"
	prefixAttendance        = "attendance/"
	prefixStudentAttendance = "student_attendance/"
)

var keyPing = []byte("meta/ping")

func classKey(classID string) []byte {
	return []byte(prefixClass + classID)
}

func teacherClassPrefix(teacherID string) []byte {
	return []byte(prefixTeacherClass + teacherID + "/")
}

func teacherClassKey(teacherID, classID string) []byte {
	return []byte(prefixTeacherClass + teacherID + "/" + classID)
}

func sessionKey(sessionID string) []byte {
	return []byte(prefixSession + sessionID)
}

func classSessionPrefix(classID string) []byte {
	return []byte(prefixClassSession + classID + "/")
}

func classSessionKey(classID, sessionID string) []byte {
	return []byte(prefixClassSession + classID + "/" + sessionID)
}

func classGuardKey(classID string) []byte {
	return []byte(prefixClassGuard + classID)
}

func attendancePrefix(sessionID string) []byte {
	return []byte(prefixAttendance + sessionID + "/")
}

func attendanceKey(sessionID, studentID string) []byte {
	return []byte(prefixAttendance + sessionID + "/" + studentID)
}

func studentAttendancePrefix(studentID string) []byte {
	return []byte(prefixStudentAttendance + studentID + "/")
}

func studentAttendanceKey(studentID, sessionID string) []byte {
	return []byte(prefixStudentAttendance + studentID + "/" + sessionID)
}
