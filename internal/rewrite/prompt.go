package rewrite

import "fmt"

// SystemPrompt frames the model as a resume editor.
const SystemPrompt = "You rewrite resumes so applicant tracking systems can parse and rank them. You never invent experience."

// BuildPrompt asks for a plain-text rewrite aligned to the job description.
func BuildPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(`Rewrite the resume below for the target job.

Rules:
- Keep every employer, title, date and degree exactly as written.
- Reuse the job description's keywords where the resume already supports them.
- Use plain section headers such as SUMMARY, EXPERIENCE, SKILLS, EDUCATION, each on its own line.
- Put achievements on lines starting with "- " and quantify them when the resume gives numbers.
- Return only the resume as plain text, no markdown and no commentary.

RESUME:
%s

JOB DESCRIPTION:
%s
`, resumeText, jobDescription)
}
