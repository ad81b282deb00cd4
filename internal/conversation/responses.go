package conversation

import "strings"

var painWords = []string{"painful", "frustrating", "difficult", "expensive", "time-consuming", "annoying"}

type reply struct {
	response string
	followUp string
	brief    map[string]any
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// respond builds the stage-specific agent reply and the brief fields the
// message contributes.
func respond(stageID int, message, lower string, complete bool) reply {
	r := reply{brief: map[string]any{}}

	pick := func(done, more string) string {
		if complete {
			return done
		}
		return more
	}

	switch stageID {
	case 1:
		switch {
		case containsAny(lower, "app", "software"):
			r.response = "A software solution - that's exciting! The digital space offers incredible opportunities for scalability and impact. "
			r.brief["business_stage"] = "idea"
			r.brief["solution_type"] = "software"
		case containsAny(lower, "service", "consulting"):
			r.response = "A service-based business can be a great way to start with lower upfront costs and direct customer feedback. "
			r.brief["business_stage"] = "idea"
			r.brief["solution_type"] = "service"
		default:
			r.response = "Thank you for sharing that with me! I can hear the passion in your description. "
		}
		if complete {
			r.response += "Now that I understand your core concept, let's dive deeper into who this would serve. "
		}
		r.followUp = pick(
			"Who do you envision as your ideal customer? Think about the specific type of person or business that would "+
				"get the most value from what you're creating.",
			"Can you tell me more about what inspired this idea? What problem or opportunity did you notice that led you here?",
		)

	case 2:
		switch {
		case containsAny(lower, "business", "company"):
			r.response = "B2B customers can be fantastic - they often have bigger budgets and longer-term relationships. "
			r.brief["customer_type"] = "b2b"
		case containsAny(lower, "people", "individual"):
			r.response = "Consumer markets offer great opportunities for scale and direct impact. "
			r.brief["customer_type"] = "b2c"
		}
		r.response += "Understanding your customers deeply is crucial for success. "
		r.followUp = pick(
			"Perfect! Now let's get specific about the problem you're solving. What exact pain point or challenge do these customers face "+
				"that your solution addresses?",
			"Can you be more specific about this customer segment? What characteristics do they share? What's their situation that makes them need your solution?",
		)

	case 3:
		if containsAny(lower, painWords...) {
			r.response = "I can tell this is a real pain point - that emotional language tells me customers would be motivated to find a solution. "
			r.brief["problem_pain_level"] = 8
		} else {
			r.response = "Thanks for explaining that. Understanding the problem clearly is essential for building the right solution. "
			r.brief["problem_pain_level"] = 6
		}
		r.brief["problem_description"] = truncate(message, 500)
		r.followUp = pick(
			"Excellent! Now I'd love to understand your solution. How exactly do you plan to solve this problem? What's your approach?",
			"Help me understand the impact of this problem. How often do your customers encounter it, and what does it cost them when they do?",
		)

	case 4:
		r.brief["solution_description"] = truncate(message, 500)
		if containsAny(lower, "unique", "different") {
			r.response = "I love that you're thinking about differentiation! That's what will make customers choose you over alternatives. "
		} else {
			r.response = "That's a solid approach to solving the problem. "
		}
		r.followUp = pick(
			"Great solution! Now let's look at the competitive landscape. Who else is trying to solve this problem, and how are customers handling it today?",
			"What makes your solution unique? Why would customers choose your approach over other ways of solving this problem?",
		)

	case 5:
		r.response = "Understanding the competition helps you position yourself effectively and identify opportunities. "
		if containsAny(lower, "no competition", "no one else") {
			r.response += "While it might seem like there's no direct competition, customers are always solving this problem somehow - " +
				"even if it's manual processes or workarounds. "
		}
		r.followUp = pick(
			"Perfect! Now let's talk resources. What's your budget range for getting this business started, and what skills or assets do you already have?",
			"What would convince a customer to switch from their current solution to yours? What's the compelling reason to change?",
		)

	case 6:
		budget := budgetPattern.FindString(message)
		if budget != "" || containsAny(lower, "thousand", "budget") {
			r.response = "Having a clear budget helps with planning and prioritization. "
			if budget == "" {
				budget = "specified"
			}
			r.brief["budget_range"] = budget
		}
		r.response += "Understanding your resources helps us create a realistic roadmap. "
		r.followUp = pick(
			"Excellent! For our final topic, let's set some strategic goals. What do you want to achieve with this business in the next 3 months?",
			"What skills, connections, or assets do you already have that could help with this business? "+
				"And what are your biggest constraints or limitations?",
		)

	case 7:
		r.response = "Setting clear, measurable goals is crucial for making progress and staying motivated. "
		r.brief["three_month_goals"] = []string{truncate(message, 200)}
		if complete {
			r.response += "Fantastic! We've covered all the key areas. I have everything I need to create your comprehensive strategic analysis. "
		}
		r.followUp = pick(
			"Before I generate your personalized strategic report, is there anything else about your business idea that you think is important for me to know?",
			"How will you measure success? What specific metrics or milestones will tell you that you're making progress?",
		)
	}

	return r
}
